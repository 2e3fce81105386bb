package descriptor

import (
	"io"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/isoerr"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
)

// VolumeDescriptorSet is the classified content of the volume descriptor set.
type VolumeDescriptorSet struct {
	Primary *PrimaryVolumeDescriptor
	// Joliet is the first supplementary descriptor carrying a Joliet escape sequence.
	Joliet        *SupplementaryVolumeDescriptor
	Supplementary []*SupplementaryVolumeDescriptor
	Boot          *BootRecordDescriptor
	Partitions    []*VolumePartitionDescriptor
	// TerminatorLBA is the block holding the set terminator. Extended area descriptors such as the UDF volume
	// recognition sequence start right after it.
	TerminatorLBA uint32
}

// Scan reads the volume descriptor set starting at LBA 16. It fails with a FormatError when the source is too small,
// when the first descriptor lacks the standard identifier, when no primary descriptor is present, or when no
// terminator is found within consts.ISO9660_MAX_VOLUME_DESCRIPTORS sectors.
func Scan(r io.ReaderAt, logger *logging.Logger) (*VolumeDescriptorSet, error) {
	logger = logging.OrDefault(logger)
	set := &VolumeDescriptorSet{}
	var buf [consts.ISO9660_SECTOR_SIZE]byte

	for i := 0; i < consts.ISO9660_MAX_VOLUME_DESCRIPTORS; i++ {
		lba := uint32(consts.ISO9660_SYSTEM_AREA_SECTORS + i)
		n, err := r.ReadAt(buf[:], int64(lba)*consts.ISO9660_SECTOR_SIZE)
		if n != len(buf) {
			if i == 0 {
				return nil, isoerr.NewFormatError("source is too small to hold a volume descriptor set (read %d bytes at sector %d: %v)", n, lba, err)
			}
			return nil, isoerr.NewFormatError("volume descriptor set ends without a terminator at sector %d", lba)
		}

		var header VolumeDescriptorHeader
		if err := header.Unmarshal([consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte(buf[:consts.ISO9660_VOLUME_DESC_HEADER_SIZE])); err != nil {
			if i == 0 {
				return nil, isoerr.NewFormatError("missing %s identifier at sector %d", consts.ISO9660_STD_IDENTIFIER, lba)
			}
			logger.Debug("Skipping sector without standard identifier", "lba", lba)
			continue
		}
		logger.Debug("Found volume descriptor", "lba", lba, "type", header.VolumeDescriptorType.String())

		switch header.VolumeDescriptorType {
		case TYPE_PRIMARY_DESCRIPTOR:
			pvd := &PrimaryVolumeDescriptor{}
			if err := pvd.Unmarshal(buf); err != nil {
				return nil, isoerr.NewFormatError("invalid primary volume descriptor at sector %d: %v", lba, err)
			}
			if set.Primary == nil {
				set.Primary = pvd
			}
		case TYPE_SUPPLEMENTARY_DESCRIPTOR:
			svd := &SupplementaryVolumeDescriptor{}
			if err := svd.Unmarshal(buf); err != nil {
				logger.Debug("Skipping unreadable supplementary volume descriptor", "lba", lba, "error", err)
				continue
			}
			set.Supplementary = append(set.Supplementary, svd)
			if set.Joliet == nil && svd.HasJoliet() {
				set.Joliet = svd
			}
		case TYPE_BOOT_RECORD:
			br := &BootRecordDescriptor{}
			if err := br.Unmarshal(buf); err != nil {
				logger.Debug("Skipping unreadable boot record", "lba", lba, "error", err)
				continue
			}
			if set.Boot == nil {
				set.Boot = br
			}
		case TYPE_PARTITION_DESCRIPTOR:
			pd := &VolumePartitionDescriptor{}
			if err := pd.Unmarshal(buf); err == nil {
				set.Partitions = append(set.Partitions, pd)
			}
		case TYPE_TERMINATOR_DESCRIPTOR:
			if set.Primary == nil {
				return nil, isoerr.NewFormatError("volume descriptor set has no primary volume descriptor")
			}
			set.TerminatorLBA = lba
			return set, nil
		default:
			logger.Debug("Ignoring reserved volume descriptor type", "lba", lba, "type", byte(header.VolumeDescriptorType))
		}
	}
	return nil, isoerr.NewFormatError("volume descriptor set terminator not found within %d sectors", consts.ISO9660_MAX_VOLUME_DESCRIPTORS)
}
