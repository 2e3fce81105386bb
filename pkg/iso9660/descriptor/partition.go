package descriptor

import (
	"fmt"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/helpers"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/encoding"
)

const (
	// Partition System Use Size is the size of a sector minus 88 bytes
	PARTITION_SYSTEM_USE_SIZE = consts.ISO9660_SECTOR_SIZE - 88
)

// VolumePartitionDescriptor is decoded for reporting only; partitions are never written.
type VolumePartitionDescriptor struct {
	VolumeDescriptorHeader
	// System Identifier specifies a system which can recognize and act upon the content of the Logical Sectors within
	// logical Sector Numbers 0 to 15 of the volume.
	//  | (a-characters)
	SystemIdentifier string `json:"system_identifier"`
	// Volume Partition Identifier specifies an identification of the Volume Partition.
	//  | (d-characters)
	VolumePartitionIdentifier string `json:"volume_partition_identifier"`
	// Volume Partition Location specifies the number of Logical Block Number of the first Logical Block allocated to
	// the Volume Partition
	//  | Encoding: BothByteOrder
	VolumePartitionLocation uint32 `json:"volume_partition_location"`
	// Volume Partition Size specifies the number of Logical Blocks in which the Volume Partition is recorded.
	//  | Encoding: BothByteOrder
	VolumePartitionSize uint32 `json:"volume_partition_size"`
	// Raw holds the complete sector as read.
	Raw [consts.ISO9660_SECTOR_SIZE]byte `json:"-"`
}

func (d *VolumePartitionDescriptor) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	if err := d.VolumeDescriptorHeader.Unmarshal([7]byte(data[0:7])); err != nil {
		return fmt.Errorf("failed to unmarshal VolumeDescriptorHeader: %w", err)
	}
	d.SystemIdentifier = helpers.TrimIdentifier(string(data[8:40]))
	d.VolumePartitionIdentifier = helpers.TrimIdentifier(string(data[40:72]))
	d.VolumePartitionLocation = encoding.UnmarshalUint32LSBMSB([8]byte(data[72:80]))
	d.VolumePartitionSize = encoding.UnmarshalUint32LSBMSB([8]byte(data[80:88]))
	d.Raw = data
	return nil
}
