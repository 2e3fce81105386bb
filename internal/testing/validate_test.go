package testing_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	isotesting "github.com/bgrewell/iso-edit-kit/internal/testing"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
)

func sampleTree(t *testing.T) *filesystem.Tree {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tree := filesystem.NewTree(now)
	dir, err := tree.AddChild(tree.Root, filesystem.NewDirectory("docs", now))
	require.NoError(t, err)
	_, err = tree.AddChild(dir, filesystem.NewFile("readme.txt", filesystem.Embedded{Data: []byte("hi")}, now))
	require.NoError(t, err)
	_, err = tree.AddChild(tree.Root, filesystem.NewFile("top.bin", filesystem.Embedded{}, now))
	require.NoError(t, err)
	return tree
}

func writeGroundTruth(t *testing.T, body string) string {
	p := filepath.Join(t.TempDir(), "ground_truth.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestGetFileAndFolderCounts(t *testing.T) {
	folders, files := isotesting.GetFileAndFolderCounts(sampleTree(t))
	assert.Equal(t, 1, folders)
	assert.Equal(t, 2, files)

	folders, files = isotesting.GetFileAndFolderCounts(filesystem.NewTree(time.Now()))
	assert.Zero(t, folders)
	assert.Zero(t, files)
}

func TestValidate(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		gt := writeGroundTruth(t, `[
			{"name": "docs", "is_directory": true},
			{"name": "docs/readme.txt", "size": 2},
			{"name": "top.bin"}
		]`)
		var out bytes.Buffer
		require.NoError(t, isotesting.Validate(&out, sampleTree(t), gt))
		assert.Contains(t, out.String(), "All entries match")
	})

	t.Run("mismatch", func(t *testing.T) {
		gt := writeGroundTruth(t, `[
			{"name": "docs", "is_directory": true},
			{"name": "docs/missing.txt"}
		]`)
		var out bytes.Buffer
		err := isotesting.Validate(&out, sampleTree(t), gt)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 missing and 2 extra")
		assert.Contains(t, out.String(), "[FILE] docs/missing.txt")
		assert.Contains(t, out.String(), "[FILE] top.bin")
	})

	t.Run("bad json", func(t *testing.T) {
		assert.Error(t, isotesting.Validate(&bytes.Buffer{}, sampleTree(t), writeGroundTruth(t, "{")))
	})
}

func TestContainsNonASCIIPrintable(t *testing.T) {
	assert.False(t, isotesting.ContainsNonASCIIPrintable("README.TXT"))
	assert.True(t, isotesting.ContainsNonASCIIPrintable("café"))
	assert.True(t, isotesting.ContainsNonASCIIPrintable("a\x00b"))
}
