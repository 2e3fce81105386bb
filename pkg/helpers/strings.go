package helpers

import (
	"strings"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
)

// PadString returns s as a fixed width field of length bytes. Longer strings are truncated and shorter ones are
// filled with consts.ISO9660_FILLER.
func PadString(s string, length int) []byte {
	b := make([]byte, length)
	n := copy(b, s)
	for i := n; i < length; i++ {
		b[i] = consts.ISO9660_FILLER
	}
	return b
}

// PadUCS2 returns the UCS-2 encoded identifier b as a fixed width field. Joliet pads with the UCS-2 space (0x00 0x20)
// and a trailing odd byte, if any, is left as a single space.
func PadUCS2(b []byte, length int) []byte {
	out := make([]byte, length)
	n := copy(out, b)
	if n%2 != 0 {
		n--
		out[n] = 0x00
	}
	for i := n; i+1 < length; i += 2 {
		out[i] = 0x00
		out[i+1] = consts.ISO9660_FILLER
	}
	if length%2 != 0 {
		out[length-1] = consts.ISO9660_FILLER
	}
	return out
}

// TrimIdentifier strips the filler and NUL bytes that pad fixed width identifier fields.
func TrimIdentifier(s string) string {
	return strings.TrimRight(s, " \x00")
}
