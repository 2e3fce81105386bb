package extensions

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
)

func area(entries ...SystemUseEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.Write(e.Marshal())
	}
	return buf.Bytes()
}

func TestRootAreaRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 9, 12, 30, 15, 0, time.UTC)
	tf, err := NewTimestampEntry(ts)
	require.NoError(t, err)

	data := area(
		NewSharingProtocolEntry(),
		NewRockRidgeReferenceEntry(),
		NewPosixEntry(PosixMode(true, false, 0), 2, 0, 0),
		tf,
	)

	rr, err := UnmarshalRockRidge(data, 0)
	require.NoError(t, err)
	assert.True(t, rr.SharingProtocol)
	assert.Equal(t, 0, rr.SkipBytes)
	assert.Equal(t, []string{consts.ROCK_RIDGE_ID}, rr.ExtensionIDs)
	require.NotNil(t, rr.Mode)
	assert.Equal(t, uint32(040755), *rr.Mode)
	mode, ok := rr.FileMode()
	require.True(t, ok)
	assert.True(t, mode.IsDir())
	require.NotNil(t, rr.ModificationTime)
	assert.True(t, ts.Equal(*rr.ModificationTime))
	assert.Nil(t, rr.CreationTime)
	assert.True(t, rr.HasRockRidge())
}

func TestRootEntriesFitInRecord(t *testing.T) {
	tf, err := NewTimestampEntry(time.Now())
	require.NoError(t, err)
	total := NewSharingProtocolEntry().Length() + NewRockRidgeReferenceEntry().Length() +
		NewPosixEntry(0, 0, 0, 0).Length() + tf.Length()
	assert.LessOrEqual(t, total, consts.ISO9660_DIRECTORY_RECORD_MAX_SIZE-consts.ISO9660_DIRECTORY_RECORD_FIXED_SIZE-1)
}

func TestAlternateName(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		rr, err := UnmarshalRockRidge(area(NewNameEntries("archive.tar.gz")...), 0)
		require.NoError(t, err)
		require.NotNil(t, rr.AlternateName)
		assert.Equal(t, "archive.tar.gz", *rr.AlternateName)
	})

	t.Run("continued", func(t *testing.T) {
		long := string(bytes.Repeat([]byte("n"), 300))
		entries := NewNameEntries(long)
		require.Len(t, entries, 2)
		assert.Equal(t, byte(NM_CONTINUE), entries[0].Data[0])
		rr, err := UnmarshalRockRidge(area(entries...), 0)
		require.NoError(t, err)
		require.NotNil(t, rr.AlternateName)
		assert.Equal(t, long, *rr.AlternateName)
	})

	t.Run("current directory flag", func(t *testing.T) {
		e := SystemUseEntry{Signature: SystemUseEntryType(ALTERNATE_NAME), Version: 1, Data: []byte{NM_CURRENT}}
		rr, err := UnmarshalRockRidge(area(e), 0)
		require.NoError(t, err)
		assert.True(t, rr.NameIsCurrent)
		assert.Nil(t, rr.AlternateName)
	})

	t.Run("truncate", func(t *testing.T) {
		e := NewNameEntries("a-rather-long-file-name.txt")[0]
		short, ok := TruncateName(e, 10)
		require.True(t, ok)
		assert.Equal(t, 10, short.Length())
		_, ok = TruncateName(e, 4)
		assert.False(t, ok)
	})
}

func TestSymlink(t *testing.T) {
	cases := []string{
		"target.txt",
		"/usr/lib/libc.so",
		"../shared/./data",
		"dir/",
	}
	expect := []string{
		"target.txt",
		"/usr/lib/libc.so",
		"../shared/./data",
		"dir",
	}
	for i, target := range cases {
		t.Run(target, func(t *testing.T) {
			rr, err := UnmarshalRockRidge(area(NewSymlinkEntries(target)...), 0)
			require.NoError(t, err)
			require.NotNil(t, rr.SymlinkTarget)
			assert.Equal(t, expect[i], *rr.SymlinkTarget)
		})
	}

	t.Run("long target spans entries", func(t *testing.T) {
		target := strings.Repeat("longcomponent/", 20) + strings.Repeat("x", 300)
		entries := NewSymlinkEntries(target)
		require.Greater(t, len(entries), 1)
		for i, e := range entries {
			assert.LessOrEqual(t, e.Length(), 255)
			assert.Equal(t, i < len(entries)-1, e.Data[0]&SL_CONTINUE != 0)
		}
		rr, err := UnmarshalRockRidge(area(entries...), 0)
		require.NoError(t, err)
		require.NotNil(t, rr.SymlinkTarget)
		assert.Equal(t, target, *rr.SymlinkTarget)
	})

	t.Run("mode", func(t *testing.T) {
		rr, err := UnmarshalRockRidge(area(NewPosixEntry(PosixMode(false, true, 0), 1, 0, 0)), 0)
		require.NoError(t, err)
		mode, ok := rr.FileMode()
		require.True(t, ok)
		assert.Equal(t, os.ModeSymlink, mode.Type())
	})
}

func TestMalformedEntryKeepsEarlierEntries(t *testing.T) {
	data := area(NewNameEntries("kept.txt")...)
	// An entry claiming 40 bytes with only 6 available.
	data = append(data, 'P', 'X', 40, 1, 0, 0)

	rr, err := UnmarshalRockRidge(data, 0)
	require.Error(t, err)
	require.NotNil(t, rr.AlternateName)
	assert.Equal(t, "kept.txt", *rr.AlternateName)
	assert.Nil(t, rr.Mode)
}

func TestStopAndPadding(t *testing.T) {
	stop := SystemUseEntry{Signature: AREA_TERMINATOR, Version: 1}
	data := area(NewNameEntries("first")...)
	data = append(data, stop.Marshal()...)
	data = append(data, area(NewNameEntries("ignored")...)...)

	entries, err := ParseSystemUseEntries(data)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = ParseSystemUseEntries([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSkipBytes(t *testing.T) {
	data := append([]byte{0xAA, 0xBB}, area(NewNameEntries("skip")...)...)
	rr, err := UnmarshalRockRidge(data, 2)
	require.NoError(t, err)
	require.NotNil(t, rr.AlternateName)
	assert.Equal(t, "skip", *rr.AlternateName)
}

func TestContinuationArea(t *testing.T) {
	image := make([]byte, 3*consts.ISO9660_SECTOR_SIZE)
	continued := area(NewNameEntries("from-continuation")...)
	copy(image[2*consts.ISO9660_SECTOR_SIZE+100:], continued)

	ce := NewContinuationEntry(Continuation{Block: 2, Offset: 100, Length: uint32(len(continued))})
	assert.Equal(t, CE_ENTRY_SIZE, ce.Length())
	put := func(off int, v uint32) {
		b := [8]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24), byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		copy(ce.Data[off:], b[:])
	}

	entries := ReadSystemUse(area(ce), bytes.NewReader(image), nil)
	rr := ParseRockRidge(entries)
	require.NotNil(t, rr.AlternateName)
	assert.Equal(t, "from-continuation", *rr.AlternateName)

	t.Run("self reference terminates", func(t *testing.T) {
		loop := make([]byte, 3*consts.ISO9660_SECTOR_SIZE)
		put(0, 1)
		put(8, 0)
		put(16, uint32(ce.Length()))
		copy(loop[consts.ISO9660_SECTOR_SIZE:], ce.Marshal())
		entries := ReadSystemUse(area(ce), bytes.NewReader(loop), nil)
		assert.Empty(t, entries)
	})
}
