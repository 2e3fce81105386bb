package systemarea

import (
	"fmt"

	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/diskfs/go-diskfs/util"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
)

const (
	// MBR_SECTOR_SIZE is the unit of MBR partition starts and sizes.
	MBR_SECTOR_SIZE = 512
	// MBR_BOOT_CODE_SIZE is the part of sector 0 that precedes the disk signature and partition entries.
	MBR_BOOT_CODE_SIZE   = 432
	MBR_SIGNATURE_OFFSET = 510
)

// Region is a range of the image in 2048-byte blocks.
type Region struct {
	LBA  uint32
	Size int64
}

// Hybrid describes the MBR written into the system area of a hybrid image.
type Hybrid struct {
	VolumeBlocks uint32
	// BootSector is the first sector of the BIOS boot image. Its boot code is copied when it carries the MBR signature.
	BootSector []byte
	// EFI, when set, gets its own EFI System partition.
	EFI *Region
}

// HasSignature reports whether b carries the 0x55 0xAA signature at offset 510.
func HasSignature(b []byte) bool {
	return len(b) >= MBR_SECTOR_SIZE && b[MBR_SIGNATURE_OFFSET] == 0x55 && b[MBR_SIGNATURE_OFFSET+1] == 0xAA
}

// Table returns the partition table for the hybrid image: a bootable ISO 9660 partition from sector 0 spanning the
// volume, followed by the EFI System partition when configured.
func (h Hybrid) Table() *mbr.Table {
	sectorsPerBlock := uint32(consts.ISO9660_SECTOR_SIZE / MBR_SECTOR_SIZE)
	table := &mbr.Table{
		LogicalSectorSize:  MBR_SECTOR_SIZE,
		PhysicalSectorSize: MBR_SECTOR_SIZE,
		Partitions: []*mbr.Partition{{
			Bootable: true,
			Type:     mbr.Iso9660,
			Start:    0,
			Size:     h.VolumeBlocks * sectorsPerBlock,
		}},
	}
	if h.EFI != nil {
		size := (h.EFI.Size + MBR_SECTOR_SIZE - 1) / MBR_SECTOR_SIZE
		if size < 1 {
			size = 1
		}
		table.Partitions = append(table.Partitions, &mbr.Partition{
			Type:  mbr.EFISystem,
			Start: h.EFI.LBA * sectorsPerBlock,
			Size:  uint32(size),
		})
	}
	return table
}

// Hybridize writes the MBR into sector 0 of f so the image can also be booted from a block device.
func Hybridize(f util.File, h Hybrid, logger *logging.Logger) error {
	logger = logging.OrDefault(logger)
	if HasSignature(h.BootSector) {
		if _, err := f.WriteAt(h.BootSector[:MBR_BOOT_CODE_SIZE], 0); err != nil {
			return fmt.Errorf("failed to write MBR boot code: %w", err)
		}
		logger.Debug("Copied MBR boot code from boot image", "bytes", MBR_BOOT_CODE_SIZE)
	} else {
		logger.Debug("Boot image carries no MBR signature, leaving boot code empty")
	}

	table := h.Table()
	size := int64(h.VolumeBlocks) * consts.ISO9660_SECTOR_SIZE
	if err := table.Write(f, size); err != nil {
		return fmt.Errorf("failed to write MBR partition table: %w", err)
	}
	logger.Debug("Wrote hybrid MBR", "partitions", len(table.Partitions), "volumeBlocks", h.VolumeBlocks)
	return nil
}
