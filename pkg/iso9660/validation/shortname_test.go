package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestShortName(t *testing.T) {
	cases := []struct {
		name  string
		isDir bool
		want  string
	}{
		{"archive.tar.gz", false, "ARCHIVE.GZ"},
		{"readme.txt", false, "README.TXT"},
		{"README", false, "README"},
		{"a very long file name.jpeg", false, "AVERYLON.JPE"},
		{".bashrc", false, "_.BAS"},
		{"file.", false, "FILE"},
		{"my.dir", true, "MYDIR"},
		{"Program Files", true, "PROGRAMF"},
		{"ünïcödé", true, "NCD"},
		{"---", true, "_"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShortName(tc.name, tc.isDir))
		})
	}
}

func TestShortNameProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.String().Draw(t, "name")
		isDir := rapid.Bool().Draw(t, "isDir")

		short := ShortName(name, isDir)
		if ShortName(short, isDir) != short {
			t.Fatalf("not idempotent: %q -> %q -> %q", name, short, ShortName(short, isDir))
		}
		if err := ValidateDCharacters(short, !isDir); err != nil {
			t.Fatalf("short name %q has invalid characters: %v", short, err)
		}
		if len(short) > 12 {
			t.Fatalf("short name %q too long", short)
		}
		if !IsCompliant(short) {
			t.Fatalf("short name %q is not compliant", short)
		}
	})
}

func TestUniqueShortNames(t *testing.T) {
	names := []string{"archive.tar.gz", "ARCHIVE.GZ", "archive.zip.gz", "docs", "Docs.d"}
	dirs := []bool{false, false, false, true, true}

	got := UniqueShortNames(names, dirs)
	assert.Equal(t, []string{"ARCHIVE.GZ", "ARCHIV_1.GZ", "ARCHIV_2.GZ", "DOCS", "DOCSD"}, got)
	assert.Equal(t, got, UniqueShortNames(names, dirs))

	t.Run("all distinct", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			names := rapid.SliceOfN(rapid.StringMatching(`[a-c.]{1,10}`), 1, 30).Draw(t, "names")
			dirs := make([]bool, len(names))
			seen := map[string]bool{}
			for _, s := range UniqueShortNames(names, dirs) {
				if seen[s] {
					t.Fatalf("duplicate short name %q", s)
				}
				seen[s] = true
			}
		})
	})
}

func TestIsCompliant(t *testing.T) {
	assert.True(t, IsCompliant("README.TXT"))
	assert.True(t, IsCompliant("readme.txt"))
	assert.True(t, IsCompliant("DIR1"))
	assert.False(t, IsCompliant("archive.tar.gz"))
	assert.False(t, IsCompliant("my file.txt"))
	assert.False(t, IsCompliant(".bashrc"))
	assert.False(t, IsCompliant("data.t-x"))
}

func TestIdentifiers(t *testing.T) {
	require.Equal(t, "MY_VOLUME_", SanitizeIdentifier("my volume!", true, 32))
	require.Equal(t, "ABC", SanitizeIdentifier("abcdef", false, 3))
	require.Equal(t, "TK_ISO_EDITOR", SanitizeIdentifier("TK_ISO_EDITOR", false, 32))
	require.Equal(t, "a_b_c", JolietName("a:b?c"))
	require.Equal(t, "plain name.txt", JolietName("plain name.txt"))
	require.NoError(t, ValidateACharacters("HELLO WORLD", false))
	require.Error(t, ValidateDCharacters("hello", false))
}
