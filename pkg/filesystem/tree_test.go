package filesystem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sample(t *testing.T) (*Tree, NodeID, NodeID) {
	tree := NewTree(now)
	dir, err := tree.AddChild(tree.Root, NewDirectory("DIR1", now))
	require.NoError(t, err)
	file, err := tree.AddChild(dir, NewFile("file1.txt", Embedded{Data: []byte("hello")}, now))
	require.NoError(t, err)
	_, err = tree.AddChild(tree.Root, NewFile("file2.txt", SourceImage{Extent: 40, Size: 6}, now))
	require.NoError(t, err)
	return tree, dir, file
}

func TestNewTree(t *testing.T) {
	tree := NewTree(now)
	root := tree.Node(tree.Root)
	require.NotNil(t, root)
	assert.True(t, root.IsDirectory)
	assert.Equal(t, root.ID, root.Parent)
	assert.Equal(t, "/", tree.Path(tree.Root))
	assert.Empty(t, tree.Children(tree.Root))
	assert.Equal(t, 1, tree.Len())
}

func TestAddChild(t *testing.T) {
	tree, dir, file := sample(t)

	assert.Equal(t, "/DIR1/file1.txt", tree.Path(file))
	assert.Equal(t, dir, tree.Node(file).Parent)
	assert.Equal(t, int64(5), tree.Node(file).Size)
	assert.Equal(t, 4, tree.Len())

	t.Run("case-insensitive collision", func(t *testing.T) {
		_, err := tree.AddChild(tree.Root, NewDirectory("dir1", now))
		assert.Error(t, err)
	})
	t.Run("parent must be a directory", func(t *testing.T) {
		_, err := tree.AddChild(file, NewDirectory("X", now))
		assert.Error(t, err)
	})
	t.Run("invalid names", func(t *testing.T) {
		_, err := tree.AddChild(tree.Root, NewDirectory("", now))
		assert.Error(t, err)
		_, err = tree.AddChild(tree.Root, NewDirectory("a/b", now))
		assert.Error(t, err)
	})
	t.Run("unknown parent", func(t *testing.T) {
		_, err := tree.AddChild(9999, NewDirectory("X", now))
		assert.Error(t, err)
	})
}

func TestChildrenAreSorted(t *testing.T) {
	tree := NewTree(now)
	for _, name := range []string{"b", "C", "a", "B2"} {
		_, err := tree.AddChild(tree.Root, NewDirectory(name, now))
		require.NoError(t, err)
	}
	var names []string
	for _, c := range tree.Children(tree.Root) {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"a", "b", "B2", "C"}, names)
}

func TestFindAndLookup(t *testing.T) {
	tree, _, file := sample(t)
	assert.Equal(t, file, tree.Lookup("/dir1/FILE1.TXT").ID)
	assert.Equal(t, tree.Root, tree.Lookup("/").ID)
	assert.Nil(t, tree.Lookup("/missing"))
	assert.Nil(t, tree.Lookup("/DIR1/file1.txt/deeper"))
	assert.NotNil(t, tree.Find(tree.Root, "FILE2.TXT"))
}

func TestDetach(t *testing.T) {
	tree, dir, file := sample(t)

	assert.False(t, tree.Detach(tree.Root))
	assert.True(t, tree.Detach(dir))
	assert.Nil(t, tree.Node(dir))
	assert.Nil(t, tree.Node(file))
	assert.Len(t, tree.Children(tree.Root), 1)
	assert.Equal(t, 2, tree.Len())

	assert.False(t, tree.Detach(dir))
}

func TestWalk(t *testing.T) {
	tree, _, _ := sample(t)
	var paths []string
	require.NoError(t, tree.Walk(func(n *Node, path string) error {
		paths = append(paths, path)
		return nil
	}))
	assert.Equal(t, []string{"/", "/DIR1", "/DIR1/file1.txt", "/file2.txt"}, paths)

	paths = nil
	require.NoError(t, tree.Walk(func(n *Node, path string) error {
		paths = append(paths, path)
		if n.IsDirectory && path != "/" {
			return SkipDir
		}
		return nil
	}))
	assert.Equal(t, []string{"/", "/DIR1", "/file2.txt"}, paths)
}

func TestPayloadLen(t *testing.T) {
	for _, p := range []Payload{
		Embedded{Data: []byte("abc")},
		SourceImage{Extent: 1, Size: 3},
		CueTrack{BinPath: "x.bin", Offset: 10, Size: 3},
	} {
		assert.Equal(t, int64(3), p.Len())
	}
}

func TestFindNonCompliantNames(t *testing.T) {
	tree, dir, _ := sample(t)
	_, err := tree.AddChild(tree.Root, NewFile("archive.tar.gz", Embedded{}, now))
	require.NoError(t, err)
	_, err = tree.AddChild(dir, NewFile("my file.txt", Embedded{}, now))
	require.NoError(t, err)

	assert.Equal(t, []string{"/DIR1/my file.txt", "/archive.tar.gz"}, FindNonCompliantNames(tree))
	assert.Empty(t, FindNonCompliantNames(NewTree(now)))
}
