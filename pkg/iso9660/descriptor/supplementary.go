package descriptor

import (
	"bytes"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
)

// SupplementaryVolumeDescriptor shares its layout with the primary descriptor. When the escape sequences name one of
// the Joliet UCS-2 levels, identifiers are stored as UCS-2 big-endian.
type SupplementaryVolumeDescriptor struct {
	VolumeDescriptorHeader
	VolumeDescriptorBody
}

// NewJolietVolumeDescriptor returns an SVD carrying the Joliet level 3 escape sequence.
func NewJolietVolumeDescriptor(body VolumeDescriptorBody) *SupplementaryVolumeDescriptor {
	body.EscapeSequences = [32]byte{}
	copy(body.EscapeSequences[:], consts.JOLIET_LEVEL_3_ESCAPE)
	return &SupplementaryVolumeDescriptor{
		VolumeDescriptorHeader: newHeader(TYPE_SUPPLEMENTARY_DESCRIPTOR),
		VolumeDescriptorBody:   body,
	}
}

// HasJoliet reports whether the escape sequences field starts with one of the three Joliet sequences.
func (svd *SupplementaryVolumeDescriptor) HasJoliet() bool {
	return IsJolietEscape(svd.EscapeSequences[:])
}

// IsJolietEscape reports whether esc starts with one of the Joliet level 1, 2 or 3 escape sequences.
func IsJolietEscape(esc []byte) bool {
	for _, seq := range []string{consts.JOLIET_LEVEL_1_ESCAPE, consts.JOLIET_LEVEL_2_ESCAPE, consts.JOLIET_LEVEL_3_ESCAPE} {
		if bytes.HasPrefix(esc, []byte(seq)) {
			return true
		}
	}
	return false
}

func (svd *SupplementaryVolumeDescriptor) Marshal() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	return marshalVolume(&svd.VolumeDescriptorHeader, &svd.VolumeDescriptorBody, svd.HasJoliet())
}

// Unmarshal parses the sector, decoding identifiers as UCS-2 when the escape sequences mark it as Joliet.
func (svd *SupplementaryVolumeDescriptor) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	joliet := IsJolietEscape(data[consts.ISO9660_ESCAPE_SEQUENCE_OFFSET : consts.ISO9660_ESCAPE_SEQUENCE_OFFSET+32])
	return unmarshalVolume(data, &svd.VolumeDescriptorHeader, &svd.VolumeDescriptorBody, joliet)
}
