package descriptor

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/directory"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/encoding"
	"github.com/bgrewell/iso-edit-kit/pkg/isoerr"
)

var when = time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)

func rootRecord(t *testing.T, extent uint32) [consts.ISO9660_ROOT_RECORD_SIZE]byte {
	b, err := directory.Encode(directory.Source{IsDirectory: true, ModTime: when},
		directory.EncodeOptions{Role: directory.RoleSelf, Extent: extent, DataLength: 2048})
	require.NoError(t, err)
	require.Len(t, b, consts.ISO9660_ROOT_RECORD_SIZE)
	return [consts.ISO9660_ROOT_RECORD_SIZE]byte(b)
}

func TestVolumeDescriptorBody_MarshalUnmarshal(t *testing.T) {
	t.Run("primary", func(t *testing.T) {
		body := VolumeDescriptorBody{
			SystemIdentifier:          "SYS_ID",
			VolumeIdentifier:          "VOL_ID",
			VolumeSpaceSize:           12345,
			VolumeSetSize:             1,
			VolumeSequenceNumber:      1,
			LogicalBlockSize:          2048,
			PathTableSize:             4096,
			LocationOfTypeLPathTable:  19,
			LocationOfTypeMPathTable:  20,
			RootDirectoryRecord:       rootRecord(t, 23),
			VolumeCreationDateAndTime: when,
			FileStructureVersion:      1,
		}
		sector, err := NewPrimaryVolumeDescriptor(body).Marshal()
		require.NoError(t, err)
		require.Equal(t, "CD001", string(sector[1:6]))

		var pvd PrimaryVolumeDescriptor
		require.NoError(t, pvd.Unmarshal(sector))
		assert.Equal(t, "SYS_ID", pvd.SystemIdentifier)
		assert.Equal(t, "VOL_ID", pvd.VolumeIdentifier)
		assert.Equal(t, uint32(12345), pvd.VolumeSpaceSize)
		assert.Equal(t, uint16(2048), pvd.LogicalBlockSize)
		assert.Equal(t, uint32(4096), pvd.PathTableSize)
		assert.Equal(t, uint32(19), pvd.LocationOfTypeLPathTable)
		assert.Equal(t, uint32(20), pvd.LocationOfTypeMPathTable)
		assert.True(t, when.Equal(pvd.VolumeCreationDateAndTime))
		assert.True(t, pvd.VolumeExpirationDateAndTime.IsZero())
		assert.Equal(t, body.RootDirectoryRecord, pvd.RootDirectoryRecord)

		// Both-byte order fields agree on self-produced descriptors.
		for _, off := range []int{80, 132} {
			assert.True(t, encoding.BothByteOrdersAgree(sector[off:off+8]), "offset %d", off)
		}
		for _, off := range []int{120, 124, 128} {
			assert.True(t, encoding.BothByteOrdersAgree(sector[off:off+4]), "offset %d", off)
		}
	})

	t.Run("marshal fails without root record", func(t *testing.T) {
		_, err := NewPrimaryVolumeDescriptor(VolumeDescriptorBody{}).Marshal()
		require.Error(t, err)
	})

	t.Run("unmarshal fails on short data", func(t *testing.T) {
		var b VolumeDescriptorBody
		require.Error(t, b.Unmarshal(make([]byte, 100), false))
	})
}

func TestJolietDescriptor(t *testing.T) {
	svd := NewJolietVolumeDescriptor(VolumeDescriptorBody{
		SystemIdentifier:    "Système",
		VolumeIdentifier:    "My Volume",
		RootDirectoryRecord: rootRecord(t, 30),
	})
	sector, err := svd.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte("%/E"), sector[consts.ISO9660_ESCAPE_SEQUENCE_OFFSET:consts.ISO9660_ESCAPE_SEQUENCE_OFFSET+3])

	vol, err := DecodeVolume(sector, true)
	require.NoError(t, err)
	assert.True(t, vol.Joliet)
	assert.Equal(t, "Système", vol.SystemID)
	assert.Equal(t, "My Volume", vol.VolumeID)

	var parsed SupplementaryVolumeDescriptor
	require.NoError(t, parsed.Unmarshal(sector))
	assert.True(t, parsed.HasJoliet())
	assert.Equal(t, "My Volume", parsed.VolumeIdentifier)
}

func TestAssembleVolume(t *testing.T) {
	catalog := uint32(21)
	sectors, err := AssembleVolume(AssembleParams{
		SystemID:     "TK_ISO_EDITOR",
		VolumeID:     "new iso",
		VolumeBlocks: 100,
		Primary:      Hierarchy{PathTableSize: 10, LPathTable: 22, MPathTable: 23, RootRecord: rootRecord(t, 26)},
		Joliet:       &Hierarchy{PathTableSize: 10, LPathTable: 24, MPathTable: 25, RootRecord: rootRecord(t, 27)},
		CatalogLBA:   &catalog,
		Timestamp:    when,
	})
	require.NoError(t, err)
	require.Len(t, sectors, DescriptorCount(true, true))

	types := []VolumeDescriptorType{TYPE_PRIMARY_DESCRIPTOR, TYPE_BOOT_RECORD, TYPE_SUPPLEMENTARY_DESCRIPTOR, TYPE_TERMINATOR_DESCRIPTOR}
	for i, s := range sectors {
		assert.Equal(t, byte(types[i]), s[0])
		assert.Equal(t, "CD001", string(s[1:6]))
	}

	assert.Equal(t, catalog, binary.LittleEndian.Uint32(sectors[1][consts.EL_TORITO_CATALOG_POINTER_OFFSET:]))
	assert.Equal(t, consts.EL_TORITO_BOOT_SYSTEM_ID, string(bytes.TrimRight(sectors[1][7:39], "\x00")))

	pvd, err := DecodeVolume(sectors[0], false)
	require.NoError(t, err)
	assert.Equal(t, "NEW_ISO", pvd.VolumeID)
	assert.Equal(t, uint32(100), pvd.VolumeBlocks)
	assert.Equal(t, uint32(22), pvd.LPathTable)

	svd, err := DecodeVolume(sectors[2], true)
	require.NoError(t, err)
	assert.Equal(t, "new iso", svd.VolumeID)
	assert.Equal(t, uint32(24), svd.LPathTable)

	t.Run("plain only", func(t *testing.T) {
		sectors, err := AssembleVolume(AssembleParams{VolumeBlocks: 30, Primary: Hierarchy{RootRecord: rootRecord(t, 20)}})
		require.NoError(t, err)
		require.Len(t, sectors, DescriptorCount(false, false))
		assert.Equal(t, byte(TYPE_TERMINATOR_DESCRIPTOR), sectors[1][0])
	})
}

func image(t *testing.T, sectors ...[consts.ISO9660_SECTOR_SIZE]byte) []byte {
	buf := make([]byte, consts.ISO9660_SYSTEM_AREA_SECTORS*consts.ISO9660_SECTOR_SIZE)
	for _, s := range sectors {
		buf = append(buf, s[:]...)
	}
	return buf
}

func TestScan(t *testing.T) {
	catalog := uint32(20)
	sectors, err := AssembleVolume(AssembleParams{
		VolumeID:   "SCAN",
		Primary:    Hierarchy{RootRecord: rootRecord(t, 25)},
		Joliet:     &Hierarchy{RootRecord: rootRecord(t, 26)},
		CatalogLBA: &catalog,
		Timestamp:  when,
	})
	require.NoError(t, err)

	set, err := Scan(bytes.NewReader(image(t, sectors...)), nil)
	require.NoError(t, err)
	require.NotNil(t, set.Primary)
	require.NotNil(t, set.Joliet)
	require.NotNil(t, set.Boot)
	assert.True(t, set.Boot.IsElTorito())
	assert.Equal(t, catalog, set.Boot.CatalogPointer())
	assert.Equal(t, uint32(19), set.TerminatorLBA)
	assert.Equal(t, "SCAN", set.Primary.VolumeIdentifier)

	t.Run("non joliet supplementary is kept but not used", func(t *testing.T) {
		svd := NewJolietVolumeDescriptor(VolumeDescriptorBody{RootDirectoryRecord: rootRecord(t, 30)})
		svd.EscapeSequences = [32]byte{}
		plain, err := svd.Marshal()
		require.NoError(t, err)
		set, err := Scan(bytes.NewReader(image(t, sectors[0], plain, sectors[3])), nil)
		require.NoError(t, err)
		assert.Len(t, set.Supplementary, 1)
		assert.Nil(t, set.Joliet)
	})
}

func TestScanFormatErrors(t *testing.T) {
	sectors, err := AssembleVolume(AssembleParams{Primary: Hierarchy{RootRecord: rootRecord(t, 20)}})
	require.NoError(t, err)

	t.Run("too small", func(t *testing.T) {
		_, err := Scan(bytes.NewReader(make([]byte, 4096)), nil)
		assert.True(t, isoerr.IsFormat(err))
	})

	t.Run("garbage", func(t *testing.T) {
		data := bytes.Repeat([]byte{0xA5}, 40*consts.ISO9660_SECTOR_SIZE)
		_, err := Scan(bytes.NewReader(data), nil)
		assert.True(t, isoerr.IsFormat(err))
	})

	t.Run("no terminator", func(t *testing.T) {
		var sets [][consts.ISO9660_SECTOR_SIZE]byte
		for i := 0; i < consts.ISO9660_MAX_VOLUME_DESCRIPTORS+2; i++ {
			sets = append(sets, sectors[0])
		}
		_, err := Scan(bytes.NewReader(image(t, sets...)), nil)
		assert.True(t, isoerr.IsFormat(err))
	})

	t.Run("truncated set", func(t *testing.T) {
		_, err := Scan(bytes.NewReader(image(t, sectors[0])), nil)
		assert.True(t, isoerr.IsFormat(err))
	})

	t.Run("terminator without primary", func(t *testing.T) {
		_, err := Scan(bytes.NewReader(image(t, sectors[1])), nil)
		assert.True(t, isoerr.IsFormat(err))
	})
}
