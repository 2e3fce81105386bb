package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/helpers"
)

const (
	// Boot System Use Size is the size of a sector minus 71 bytes
	BOOT_SYSTEM_USE_SIZE = consts.ISO9660_SECTOR_SIZE - 71
)

type BootRecordDescriptor struct {
	VolumeDescriptorHeader
	BootRecordBody
}

type BootRecordBody struct {
	// Boot System Identifier specifies and identification of a system which can recognize and act upon the contents of
	// the Boot Identifier and Boot System Use fields in the Boot Record. (a-characters)
	BootSystemIdentifier string `json:"boot_system_identifier"`
	// Boot Identifier shall specify an identification of the boot system specified in the Boot System Use field of the
	// Boot Record. (a-characters)
	BootIdentifier string `json:"boot_identifier"`
	// Boot System Use is a byte field that is used by the boot system specified by the identifier.
	BootSystemUse [BOOT_SYSTEM_USE_SIZE]byte `json:"boot_system_use"`
}

// NewElToritoBootRecord returns a Boot Record pointing at the boot catalog in block catalogLBA.
func NewElToritoBootRecord(catalogLBA uint32) *BootRecordDescriptor {
	d := &BootRecordDescriptor{
		VolumeDescriptorHeader: newHeader(TYPE_BOOT_RECORD),
		BootRecordBody:         BootRecordBody{BootSystemIdentifier: consts.EL_TORITO_BOOT_SYSTEM_ID},
	}
	binary.LittleEndian.PutUint32(d.BootSystemUse[0:4], catalogLBA)
	return d
}

// IsElTorito reports whether the boot system identifier names the El Torito specification.
func (d *BootRecordDescriptor) IsElTorito() bool {
	return d.BootSystemIdentifier == consts.EL_TORITO_BOOT_SYSTEM_ID
}

// CatalogPointer returns the boot catalog LBA stored at byte 71 of an El Torito boot record.
func (d *BootRecordDescriptor) CatalogPointer() uint32 {
	return binary.LittleEndian.Uint32(d.BootSystemUse[0:4])
}

// Marshal converts the BootRecordDescriptor into its 2048-byte on-disk representation. Identifiers are padded with
// zero bytes as El Torito requires.
func (d *BootRecordDescriptor) Marshal() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	var buf [consts.ISO9660_SECTOR_SIZE]byte
	offset := 0

	// 1. Header: 7 bytes.
	header := d.VolumeDescriptorHeader.Marshal()
	copy(buf[0:7], header[:])
	offset += 7

	// 2. Boot System Identifier: 32 bytes.
	copy(buf[offset:offset+32], d.BootSystemIdentifier)
	offset += 32

	// 3. Boot Identifier: 32 bytes.
	copy(buf[offset:offset+32], d.BootIdentifier)
	offset += 32

	// 4. Boot System Use: remaining bytes.
	copy(buf[offset:offset+BOOT_SYSTEM_USE_SIZE], d.BootSystemUse[:])
	offset += BOOT_SYSTEM_USE_SIZE

	if offset != consts.ISO9660_SECTOR_SIZE {
		return buf, fmt.Errorf("marshal BootRecordDescriptor: incorrect offset %d", offset)
	}
	return buf, nil
}

// Unmarshal parses a 2048-byte sector into the BootRecordDescriptor.
func (d *BootRecordDescriptor) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	if err := d.VolumeDescriptorHeader.Unmarshal([7]byte(data[0:7])); err != nil {
		return fmt.Errorf("failed to unmarshal VolumeDescriptorHeader: %w", err)
	}
	d.BootSystemIdentifier = helpers.TrimIdentifier(string(data[7:39]))
	d.BootIdentifier = helpers.TrimIdentifier(string(data[39:71]))
	copy(d.BootSystemUse[:], data[71:])
	return nil
}
