package descriptor

import (
	"fmt"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
)

type VolumeDescriptorSetTerminator struct {
	VolumeDescriptorHeader
}

func NewVolumeDescriptorSetTerminator() *VolumeDescriptorSetTerminator {
	return &VolumeDescriptorSetTerminator{VolumeDescriptorHeader: newHeader(TYPE_TERMINATOR_DESCRIPTOR)}
}

// Marshal writes the header; the remaining 2041 bytes are reserved and zero.
func (d *VolumeDescriptorSetTerminator) Marshal() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	var buf [consts.ISO9660_SECTOR_SIZE]byte
	header := d.VolumeDescriptorHeader.Marshal()
	copy(buf[:], header[:])
	return buf, nil
}

func (d *VolumeDescriptorSetTerminator) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	if err := d.VolumeDescriptorHeader.Unmarshal([7]byte(data[0:7])); err != nil {
		return fmt.Errorf("failed to unmarshal VolumeDescriptorHeader: %w", err)
	}
	return nil
}
