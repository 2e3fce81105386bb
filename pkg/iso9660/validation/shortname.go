package validation

import (
	"strconv"
	"strings"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
)

// ShortName derives the level 1 identifier for name. Files are split at their last '.' into base and extension, the
// base is cut at its first remaining '.', everything outside [A-Z0-9_] is dropped after uppercasing, and the parts
// are truncated to 8 and 3 characters. Directories never get an extension. An empty base becomes "_".
//
// ShortName is idempotent: ShortName(ShortName(n, d), d) == ShortName(n, d).
func ShortName(name string, isDir bool) string {
	upper := strings.ToUpper(name)
	base, ext := upper, ""
	if !isDir {
		if i := strings.LastIndex(upper, consts.ISO9660_SEPARATOR_1); i >= 0 {
			base, ext = upper[:i], upper[i+1:]
		}
		if i := strings.Index(base, consts.ISO9660_SEPARATOR_1); i >= 0 {
			base = base[:i]
		}
	}

	base = truncate(keepDCharacters(base), consts.ISO9660_MAX_BASE_LENGTH)
	ext = truncate(keepDCharacters(ext), consts.ISO9660_MAX_EXTENSION_LENGTH)
	if base == "" {
		base = "_"
	}
	if ext == "" {
		return base
	}
	return base + consts.ISO9660_SEPARATOR_1 + ext
}

func keepDCharacters(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(consts.D_CHARACTERS, s[i]) >= 0 {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// UniqueShortNames derives the short names of a set of siblings. Names are processed in the given order; a name
// whose short form is already taken gets its base tail replaced with "_N", using the smallest free N.
func UniqueShortNames(names []string, isDir []bool) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for i, name := range names {
		short := ShortName(name, isDir[i])
		if taken[short] {
			base, ext := short, ""
			if j := strings.LastIndex(short, consts.ISO9660_SEPARATOR_1); j >= 0 {
				base, ext = short[:j], short[j:]
			}
			for n := 1; ; n++ {
				tail := "_" + strconv.Itoa(n)
				keep := consts.ISO9660_MAX_BASE_LENGTH - len(tail)
				if keep < 0 {
					keep = 0
				}
				candidate := truncate(base, keep) + tail + ext
				if !taken[candidate] {
					short = candidate
					break
				}
			}
		}
		taken[short] = true
		out[i] = short
	}
	return out
}

// IsCompliant reports whether name already satisfies the level 1 naming rules: at most one '.', and a non-empty base
// and optional extension made only of d-characters once uppercased.
func IsCompliant(name string) bool {
	if strings.Count(name, consts.ISO9660_SEPARATOR_1) > 1 {
		return false
	}
	upper := strings.ToUpper(name)
	base, ext := upper, ""
	if i := strings.LastIndex(upper, consts.ISO9660_SEPARATOR_1); i > 0 {
		base, ext = upper[:i], upper[i+1:]
	}
	if base == "" || ValidateDCharacters(base, false) != nil {
		return false
	}
	return ext == "" || ValidateDCharacters(ext, false) == nil
}
