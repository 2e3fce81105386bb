package boot

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/helpers"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
)

const (
	HEADER_VALIDATION   = 0x01
	INDICATOR_BOOTABLE  = 0x88
	HEADER_SECTION      = 0x90
	HEADER_SECTION_LAST = 0x91
	KEY_BYTE_55         = 0x55
	KEY_BYTE_AA         = 0xAA

	// Validation entry layout.
	validationIDOffset       = 4
	validationIDSize         = 24
	validationChecksumOffset = 0x1C

	// Largest sector count an x86 no-emulation entry loads.
	noEmulationLoadSectors = 4
)

// Platform represents the target booting system for an El-Torito bootable ISO.
type Platform uint8

const (
	BIOS Platform = 0x0  // Classic PC-BIOS x86
	PPC  Platform = 0x1  // PowerPC
	Mac  Platform = 0x2  // Macintosh systems
	EFI  Platform = 0xef // Extensible Firmware Interface (EFI)
)

func (p Platform) String() string {
	switch p {
	case BIOS:
		return "BIOS"
	case PPC:
		return "PowerPC"
	case Mac:
		return "Macintosh"
	case EFI:
		return "EFI"
	default:
		return "Unknown"
	}
}

// Emulation represents the emulation mode used for booting.
type Emulation uint8

const (
	NoEmulation        Emulation = 0x0 // No emulation (default)
	Floppy12Emulation  Emulation = 0x1 // Emulate a 1.2 MB floppy
	Floppy144Emulation Emulation = 0x2 // Emulate a 1.44 MB floppy
	Floppy288Emulation Emulation = 0x3 // Emulate a 2.88 MB floppy
	HardDiskEmulation  Emulation = 0x4 // Emulate a hard disk
)

func (e Emulation) String() string {
	switch e {
	case NoEmulation:
		return "NoEmul"
	case Floppy12Emulation:
		return "1.2MFloppy"
	case Floppy144Emulation:
		return "1.44MFloppy"
	case Floppy288Emulation:
		return "2.88MFloppy"
	case HardDiskEmulation:
		return "HardDisk"
	default:
		return "Unknown"
	}
}

// ParseEmulation maps the names used on the command line to an Emulation.
func ParseEmulation(s string) (Emulation, error) {
	switch s {
	case "", "noemul", "none":
		return NoEmulation, nil
	case "floppy", "floppy144":
		return Floppy144Emulation, nil
	case "floppy12":
		return Floppy12Emulation, nil
	case "floppy288":
		return Floppy288Emulation, nil
	case "hdemul", "harddisk":
		return HardDiskEmulation, nil
	}
	return NoEmulation, fmt.Errorf("unknown boot emulation %q", s)
}

// Entry is a single boot image referenced from the catalog.
type Entry struct {
	Platform  Platform
	Emulation Emulation
	// LoadSegment of zero means the BIOS default of 0x07C0.
	LoadSegment uint16
	// SystemType copies the partition type byte of the image; only meaningful for hard disk emulation.
	SystemType byte
	// Bootable is set on every entry Build writes; parsed catalogs may hold non-bootable entries.
	Bootable bool
	// SectorCount is the number of 512-byte virtual sectors loaded at boot.
	SectorCount uint16
	// ImageLBA is the block holding the first byte of the boot image.
	ImageLBA uint32
}

// Catalog is the decoded content of a boot catalog.
type Catalog struct {
	Platform   Platform
	Identifier string
	Entries    []Entry
}

// Default returns the initial/default entry.
func (c *Catalog) Default() *Entry {
	if len(c.Entries) == 0 {
		return nil
	}
	return &c.Entries[0]
}

// SectorCount returns the number of 512-byte virtual sectors recorded for an image of size bytes. An x86
// no-emulation image loads at most four sectors; every other entry covers the whole image up to 0xFFFF sectors.
func SectorCount(platform Platform, emulation Emulation, size int64) uint16 {
	n := (size + consts.EL_TORITO_VIRTUAL_SECTOR_SIZE - 1) / consts.EL_TORITO_VIRTUAL_SECTOR_SIZE
	if n < 1 {
		n = 1
	}
	if platform == BIOS && emulation == NoEmulation && n > noEmulationLoadSectors {
		n = noEmulationLoadSectors
	}
	if n > 0xFFFF {
		n = 0xFFFF
	}
	return uint16(n)
}

// Build produces a 2048-byte boot catalog. The first entry becomes the initial/default entry and every further entry
// gets its own section; the header of the final section is marked 0x91.
func Build(entries []Entry) ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	var data [consts.ISO9660_SECTOR_SIZE]byte
	if len(entries) == 0 {
		return data, fmt.Errorf("boot catalog has no entries")
	}
	// validation + default + (header + entry) per additional platform
	if need := consts.EL_TORITO_ENTRY_SIZE * (2 + 2*(len(entries)-1)); need > len(data) {
		return data, fmt.Errorf("boot catalog with %d entries exceeds one sector", len(entries))
	}

	putValidationEntry(data[:consts.EL_TORITO_ENTRY_SIZE], entries[0].Platform, consts.EL_TORITO_VALIDATION_ID)

	offset := consts.EL_TORITO_ENTRY_SIZE
	putEntry(data[offset:offset+consts.EL_TORITO_ENTRY_SIZE], entries[0])
	offset += consts.EL_TORITO_ENTRY_SIZE

	for i, e := range entries[1:] {
		header := data[offset : offset+consts.EL_TORITO_ENTRY_SIZE]
		header[0] = HEADER_SECTION
		if i == len(entries)-2 {
			header[0] = HEADER_SECTION_LAST
		}
		header[1] = byte(e.Platform)
		binary.LittleEndian.PutUint16(header[2:4], 1)
		offset += consts.EL_TORITO_ENTRY_SIZE

		putEntry(data[offset:offset+consts.EL_TORITO_ENTRY_SIZE], e)
		offset += consts.EL_TORITO_ENTRY_SIZE
	}
	return data, nil
}

func putValidationEntry(b []byte, platform Platform, id string) {
	b[0] = HEADER_VALIDATION
	b[1] = byte(platform)
	copy(b[validationIDOffset:validationIDOffset+validationIDSize], id)
	b[0x1E] = KEY_BYTE_55
	b[0x1F] = KEY_BYTE_AA
	binary.LittleEndian.PutUint16(b[validationChecksumOffset:], -wordSum(b))
}

func putEntry(b []byte, e Entry) {
	b[0] = INDICATOR_BOOTABLE
	b[1] = byte(e.Emulation)
	binary.LittleEndian.PutUint16(b[2:4], e.LoadSegment)
	b[4] = e.SystemType
	binary.LittleEndian.PutUint16(b[6:8], e.SectorCount)
	binary.LittleEndian.PutUint32(b[8:12], e.ImageLBA)
}

// wordSum adds the sixteen little-endian words of a 32-byte entry.
func wordSum(b []byte) uint16 {
	var sum uint16
	for i := 0; i+1 < consts.EL_TORITO_ENTRY_SIZE; i += 2 {
		sum += binary.LittleEndian.Uint16(b[i : i+2])
	}
	return sum
}

// Parse decodes a boot catalog. Section entries take the platform of their section header. Parsing stops at the
// first empty slot or once the final section has been read.
func Parse(data []byte, logger *logging.Logger) (*Catalog, error) {
	logger = logging.OrDefault(logger)
	if len(data) < 2*consts.EL_TORITO_ENTRY_SIZE {
		return nil, fmt.Errorf("boot catalog: data too short")
	}
	if err := parseValidationEntry(data[:consts.EL_TORITO_ENTRY_SIZE]); err != nil {
		return nil, fmt.Errorf("boot catalog: invalid validation entry: %w", err)
	}

	cat := &Catalog{
		Platform:   Platform(data[1]),
		Identifier: helpers.TrimIdentifier(string(data[validationIDOffset : validationIDOffset+validationIDSize])),
	}
	initial := parseEntry(data[consts.EL_TORITO_ENTRY_SIZE:2*consts.EL_TORITO_ENTRY_SIZE], cat.Platform)
	cat.Entries = append(cat.Entries, initial)

	remaining := 0
	platform := cat.Platform
	last := false
	for offset := 2 * consts.EL_TORITO_ENTRY_SIZE; offset+consts.EL_TORITO_ENTRY_SIZE <= len(data); offset += consts.EL_TORITO_ENTRY_SIZE {
		b := data[offset : offset+consts.EL_TORITO_ENTRY_SIZE]
		switch {
		case remaining > 0:
			// Extension records (0x44) continue the selection criteria of the previous entry.
			if b[0] == 0x44 {
				continue
			}
			cat.Entries = append(cat.Entries, parseEntry(b, platform))
			logger.Trace("Parsed section entry", "offset", offset, "platform", platform.String())
			remaining--
		case last:
			return cat, nil
		case b[0] == HEADER_SECTION || b[0] == HEADER_SECTION_LAST:
			platform = Platform(b[1])
			remaining = int(binary.LittleEndian.Uint16(b[2:4]))
			last = b[0] == HEADER_SECTION_LAST
			logger.Debug("Section header found", "offset", offset, "platform", platform.String(), "entries", remaining)
		default:
			return cat, nil
		}
	}
	return cat, nil
}

// ReadCatalog reads and decodes the boot catalog stored in block lba.
func ReadCatalog(r io.ReaderAt, lba uint32, logger *logging.Logger) (*Catalog, error) {
	buf := make([]byte, consts.ISO9660_SECTOR_SIZE)
	if _, err := r.ReadAt(buf, int64(lba)*consts.ISO9660_SECTOR_SIZE); err != nil {
		return nil, fmt.Errorf("failed to read boot catalog at block %d: %w", lba, err)
	}
	return Parse(buf, logger)
}

// ReadImage returns the bytes an entry loads: SectorCount virtual sectors starting at ImageLBA.
func ReadImage(r io.ReaderAt, e Entry) ([]byte, error) {
	data := make([]byte, int64(e.SectorCount)*consts.EL_TORITO_VIRTUAL_SECTOR_SIZE)
	offset := int64(e.ImageLBA) * consts.ISO9660_SECTOR_SIZE
	n, err := r.ReadAt(data, offset)
	if n < len(data) {
		return nil, fmt.Errorf("failed to read boot image at offset %d: %w", offset, err)
	}
	return data, nil
}

func parseEntry(b []byte, platform Platform) Entry {
	return Entry{
		Platform:    platform,
		Bootable:    b[0] == INDICATOR_BOOTABLE,
		Emulation:   Emulation(b[1] & 0x0F),
		LoadSegment: binary.LittleEndian.Uint16(b[2:4]),
		SystemType:  b[4],
		SectorCount: binary.LittleEndian.Uint16(b[6:8]),
		ImageLBA:    binary.LittleEndian.Uint32(b[8:12]),
	}
}

func parseValidationEntry(data []byte) error {
	if data[0] != HEADER_VALIDATION {
		return fmt.Errorf("invalid header ID %x", data[0])
	}
	if data[0x1E] != KEY_BYTE_55 || data[0x1F] != KEY_BYTE_AA {
		return fmt.Errorf("invalid key bytes %x%x", data[0x1E], data[0x1F])
	}
	if wordSum(data) != 0 {
		return fmt.Errorf("checksum invalid")
	}
	return nil
}
