package boot

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
)

func TestSectorCount(t *testing.T) {
	for _, tc := range []struct {
		name      string
		platform  Platform
		emulation Emulation
		size      int64
		want      uint16
	}{
		{"bios no emulation large", BIOS, NoEmulation, 30000, 4},
		{"bios no emulation small", BIOS, NoEmulation, 1000, 2},
		{"bios no emulation empty", BIOS, NoEmulation, 0, 1},
		{"efi image", EFI, NoEmulation, 1474560, 2880},
		{"efi image rounds up", EFI, NoEmulation, 513, 2},
		{"efi capped", EFI, NoEmulation, 64 << 20, 0xFFFF},
		{"bios floppy", BIOS, Floppy144Emulation, 1474560, 2880},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SectorCount(tc.platform, tc.emulation, tc.size))
		})
	}
}

func TestBuildAndParse(t *testing.T) {
	entries := []Entry{
		{Platform: BIOS, Emulation: NoEmulation, SectorCount: 4, ImageLBA: 30},
		{Platform: EFI, Emulation: NoEmulation, SectorCount: 2880, ImageLBA: 31},
	}
	data, err := Build(entries)
	require.NoError(t, err)

	assert.Equal(t, byte(HEADER_VALIDATION), data[0])
	assert.Equal(t, consts.EL_TORITO_VALIDATION_ID, string(bytes.TrimRight(data[4:28], "\x00")))
	assert.Equal(t, []byte{0x55, 0xAA}, data[30:32])
	assert.Equal(t, byte(INDICATOR_BOOTABLE), data[32])
	assert.Equal(t, uint32(30), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, byte(HEADER_SECTION_LAST), data[64])
	assert.Equal(t, byte(EFI), data[65])
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[66:68]))

	cat, err := Parse(data[:], nil)
	require.NoError(t, err)
	assert.Equal(t, BIOS, cat.Platform)
	assert.Equal(t, consts.EL_TORITO_VALIDATION_ID, cat.Identifier)
	require.Len(t, cat.Entries, 2)
	assert.Equal(t, uint32(30), cat.Default().ImageLBA)
	assert.Equal(t, EFI, cat.Entries[1].Platform)
	assert.Equal(t, uint16(2880), cat.Entries[1].SectorCount)
	assert.True(t, cat.Entries[1].Bootable)

	image := make([]byte, 32*consts.ISO9660_SECTOR_SIZE)
	copy(image[29*consts.ISO9660_SECTOR_SIZE:], data[:])
	copy(image[30*consts.ISO9660_SECTOR_SIZE:], "BOOTCODE")
	r := bytes.NewReader(image)
	cat, err = ReadCatalog(r, 29, nil)
	require.NoError(t, err)
	img, err := ReadImage(r, *cat.Default())
	require.NoError(t, err)
	assert.Len(t, img, 4*consts.EL_TORITO_VIRTUAL_SECTOR_SIZE)
	assert.True(t, bytes.HasPrefix(img, []byte("BOOTCODE")))
}

func TestSectionHeaders(t *testing.T) {
	data, err := Build([]Entry{{Platform: BIOS}, {Platform: EFI}, {Platform: Mac}})
	require.NoError(t, err)
	assert.Equal(t, byte(HEADER_SECTION), data[64])
	assert.Equal(t, byte(HEADER_SECTION_LAST), data[128])

	t.Run("single entry has no sections", func(t *testing.T) {
		data, err := Build([]Entry{{Platform: BIOS}})
		require.NoError(t, err)
		assert.Zero(t, data[64])
	})
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(nil)
	assert.Error(t, err)

	_, err = Build(make([]Entry, 40))
	assert.Error(t, err)
}

func TestParseRejectsBadValidationEntry(t *testing.T) {
	data, err := Build([]Entry{{Platform: BIOS}})
	require.NoError(t, err)

	bad := data
	bad[5]++
	_, err = Parse(bad[:], nil)
	assert.Error(t, err)

	bad = data
	bad[31] = 0
	_, err = Parse(bad[:], nil)
	assert.Error(t, err)

	_, err = Parse(data[:16], nil)
	assert.Error(t, err)
}

func TestValidationChecksum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		platforms := []Platform{BIOS, PPC, Mac, EFI}
		n := rapid.IntRange(1, 8).Draw(t, "entries")
		entries := make([]Entry, n)
		for i := range entries {
			entries[i] = Entry{
				Platform:    platforms[rapid.IntRange(0, len(platforms)-1).Draw(t, "platform")],
				Emulation:   Emulation(rapid.IntRange(0, 4).Draw(t, "emulation")),
				LoadSegment: rapid.Uint16().Draw(t, "segment"),
				SectorCount: rapid.Uint16().Draw(t, "count"),
				ImageLBA:    rapid.Uint32().Draw(t, "lba"),
			}
		}
		data, err := Build(entries)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		if sum := wordSum(data[:consts.EL_TORITO_ENTRY_SIZE]); sum != 0 {
			t.Fatalf("validation entry words sum to %#x", sum)
		}
		cat, err := Parse(data[:], nil)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if len(cat.Entries) != n {
			t.Fatalf("parsed %d entries, want %d", len(cat.Entries), n)
		}
		for i, e := range cat.Entries {
			want := entries[i]
			want.Bootable = true
			if i == 0 {
				want.Platform = entries[0].Platform
			}
			if e != want {
				t.Fatalf("entry %d: got %+v want %+v", i, e, want)
			}
		}
	})
}

func TestParseEmulation(t *testing.T) {
	for name, want := range map[string]Emulation{
		"":          NoEmulation,
		"noemul":    NoEmulation,
		"floppy":    Floppy144Emulation,
		"floppy12":  Floppy12Emulation,
		"floppy288": Floppy288Emulation,
		"harddisk":  HardDiskEmulation,
	} {
		got, err := ParseEmulation(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseEmulation("cdrom")
	assert.Error(t, err)
}
