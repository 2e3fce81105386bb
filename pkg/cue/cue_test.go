package cue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgrewell/iso-edit-kit/pkg/isoerr"
)

func TestParseMSF(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want int64
		err  bool
	}{
		{"00:00:00", 0, false},
		{"00:02:00", 352800, false},
		{"01:00:01", (60*75 + 1) * 2352, false},
		{" 00:00:74 ", 74 * 2352, false},
		{"00:70:00", 0, true},
		{"00:00:75", 0, true},
		{"00:00", 0, true},
		{"aa:00:00", 0, true},
		{"00:-1:00", 0, true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseMSF(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSizes(t *testing.T) {
	tracks := []Track{{Number: 1, Offset: 0}, {Number: 2, Offset: 352800}}
	sizes, err := Sizes(tracks, 400000)
	require.NoError(t, err)
	assert.Equal(t, []int64{352800, 400000 - 352800}, sizes)

	sizes, err = Sizes(tracks, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sizes[1])

	_, err = Sizes([]Track{{Number: 1, Offset: 10}, {Number: 2, Offset: 5}}, 100)
	assert.Error(t, err)
}

func TestTrackName(t *testing.T) {
	assert.Equal(t, "Intro", Track{Number: 1, Title: "Intro"}.Name())
	assert.Equal(t, "TRACK_03.wav", Track{Number: 3}.Name())
}

func TestReadRange(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "IMAGE.BIN")
	require.NoError(t, os.WriteFile(bin, []byte{0x11, 0x11, 0x22, 0x22}, 0644))

	data, err := ReadRange(bin, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22}, data)

	data, err = ReadRange(bin, 4, 0)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = ReadRange(bin, 2, 10)
	assert.Error(t, err)

	_, err = ReadRange(filepath.Join(t.TempDir(), "MISSING.BIN"), 0, 1)
	assert.True(t, isoerr.IsNotFound(err))
}
