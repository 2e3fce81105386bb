package udf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
)

func volume(start int, ids ...string) []byte {
	data := make([]byte, (start+len(ids)+2)*consts.UDF_SECTOR_SIZE)
	for i, id := range ids {
		off := (start + i) * consts.UDF_SECTOR_SIZE
		data[off] = 0
		copy(data[off+1:], id)
		data[off+6] = 1
	}
	return data
}

func TestDetectVRS(t *testing.T) {
	for _, tc := range []struct {
		name    string
		ids     []string
		present bool
		nsr     int
	}{
		{"udf 2.x", []string{"BEA01", "NSR03", "TEA01"}, true, 3},
		{"udf 1.x", []string{"BEA01", "NSR02", "TEA01"}, true, 2},
		{"boot descriptor inside", []string{"BEA01", "BOOT2", "NSR02", "TEA01"}, true, 2},
		{"missing nsr", []string{"BEA01", "TEA01"}, false, 0},
		{"missing tea", []string{"BEA01", "NSR02"}, false, 2},
		{"nothing", nil, false, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := DetectVRS(bytes.NewReader(volume(18, tc.ids...)), 18, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.present, rec.Present)
			assert.Equal(t, tc.nsr, rec.NSRVersion)
			assert.Equal(t, len(tc.ids), len(rec.Identifiers))
			assert.Equal(t, uint32(18), rec.StartLBA)
		})
	}

	t.Run("past end of source", func(t *testing.T) {
		rec, err := DetectVRS(bytes.NewReader(make([]byte, 4096)), 100, nil)
		require.NoError(t, err)
		assert.False(t, rec.Present)
	})
}
