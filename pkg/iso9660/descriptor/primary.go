package descriptor

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/helpers"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/encoding"
)

//10.1 Level 1
// At Level 1 the following restrictions shall apply to a volume identified by a Primary Volume Descriptor or by a
// Supplementary Volume Descriptor:
//  - each file shall consist of only one File Section;
//  - a File Name shall not contain more than eight d-characters or eight d1-characters;
//  - a File Name Extension shall not contain more than three d-characters or three d1-characters;
//  - a Directory Identifier shall not contain more than eight d-characters or eight d1-characters.

const (
	// Reserved for future use field from BP 1396 to 2048
	PRIMARY_RESERVED_FIELD2_SIZE        = 653
	PRIMARY_VOLUME_DESCRIPTOR_BODY_SIZE = 2041
)

type PrimaryVolumeDescriptor struct {
	VolumeDescriptorHeader
	VolumeDescriptorBody
}

// NewPrimaryVolumeDescriptor returns a PVD with the header filled in.
func NewPrimaryVolumeDescriptor(body VolumeDescriptorBody) *PrimaryVolumeDescriptor {
	return &PrimaryVolumeDescriptor{
		VolumeDescriptorHeader: newHeader(TYPE_PRIMARY_DESCRIPTOR),
		VolumeDescriptorBody:   body,
	}
}

func (pvd *PrimaryVolumeDescriptor) Marshal() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	return marshalVolume(&pvd.VolumeDescriptorHeader, &pvd.VolumeDescriptorBody, false)
}

func (pvd *PrimaryVolumeDescriptor) Unmarshal(data [consts.ISO9660_SECTOR_SIZE]byte) error {
	return unmarshalVolume(data, &pvd.VolumeDescriptorHeader, &pvd.VolumeDescriptorBody, false)
}

// VolumeDescriptorBody holds the fields shared by primary and supplementary volume descriptors. Fields that are
// unused in a primary descriptor (volume flags and escape sequences) are written as zero there.
type VolumeDescriptorBody struct {
	// Volume Flags (supplementary only): bit 0 set means escape sequences not registered according to ISO 2375.
	VolumeFlags byte `json:"volume_flags"`
	// System Identifier specifies a system which can recognize and act upon the content of the Logical Sectors within
	// logical Sector Numbers 0 to 15 of the volume.
	//  | (a-characters)
	SystemIdentifier string `json:"system_identifier"`
	// Volume Identifier specifies an identification of the volume
	//  | (d-characters)
	VolumeIdentifier string `json:"volume_identifier"`
	// Volume Space Size is the number of logical blocks in which the Volume Space of the volume is recorded.
	//  | Encoding: BothByteOrder
	VolumeSpaceSize uint32 `json:"volume_space_size"`
	// Escape Sequences (supplementary only) designate the coded character set; Joliet uses %/@, %/C or %/E.
	EscapeSequences [32]byte `json:"escape_sequences"`
	//  | Encoding: BothByteOrder
	VolumeSetSize uint16 `json:"volume_set_size"`
	//  | Encoding: BothByteOrder
	VolumeSequenceNumber uint16 `json:"volume_sequence_number"`
	//  | Encoding: BothByteOrder
	LogicalBlockSize uint16 `json:"logical_block_size"`
	// Path Table Size specifies the length in bytes of a recorded occurrence of the Path Table identified by this
	// Volume Descriptor.
	//  | Encoding: BothByteOrder
	PathTableSize uint32 `json:"path_table_size"`
	// Logical Block Numbers of the type L path table and its optional copy (0 means not recorded).
	//  | Encoding: LittleEndian
	LocationOfTypeLPathTable         uint32 `json:"location_type_of_l_path_table"`
	LocationOfOptionalTypeLPathTable uint32 `json:"location_of_optional_type_l_path_table"`
	// Logical Block Numbers of the type M path table and its optional copy (0 means not recorded).
	//  | Encoding: BigEndian
	LocationOfTypeMPathTable         uint32 `json:"location_of_m_path_table"`
	LocationOfOptionalTypeMPathTable uint32 `json:"location_of_optional_type_m_path_table"`
	// Root Directory Record is kept as the raw 34 bytes of the record.
	RootDirectoryRecord [consts.ISO9660_ROOT_RECORD_SIZE]byte `json:"root_directory_record"`
	// Volume Set, Publisher, Data Preparer and Application Identifiers. All filler means there is no identifier.
	VolumeSetIdentifier    string `json:"volume_set_identifier"`
	PublisherIdentifier    string `json:"publisher_identifier"`
	DataPreparerIdentifier string `json:"data_preparer_identifier"`
	ApplicationIdentifier  string `json:"application_identifier"`
	// Copyright, Abstract and Bibliographic File Identifiers name files in the root directory.
	CopyrightFileIdentifier     string `json:"copyright_file_identifier"`
	AbstractFileIdentifier      string `json:"abstract_file_identifier"`
	BibliographicFileIdentifier string `json:"bibliographic_file_identifier"`
	//  | 8.4.26.1 Date and Time Format
	VolumeCreationDateAndTime     time.Time `json:"volume_creation_date_and_time"`
	VolumeModificationDateAndTime time.Time `json:"volume_modification_date_and_time"`
	VolumeExpirationDateAndTime   time.Time `json:"volume_expiration_date_and_time"`
	VolumeEffectiveDateAndTime    time.Time `json:"volume_effective_date_and_time"`
	// File Structure Version is 1 for primary and supplementary descriptors.
	FileStructureVersion uint8 `json:"file_structure_version"`
	// Application Use field is reserved for application use.
	ApplicationUse [consts.ISO9660_APPLICATION_USE_SIZE]byte `json:"application_use"`
}

func marshalVolume(h *VolumeDescriptorHeader, b *VolumeDescriptorBody, ucs2 bool) ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	var data [consts.ISO9660_SECTOR_SIZE]byte
	header := h.Marshal()
	copy(data[:consts.ISO9660_VOLUME_DESC_HEADER_SIZE], header[:])

	body, err := b.Marshal(ucs2)
	if err != nil {
		return data, fmt.Errorf("failed to marshal %s volume descriptor: %w", h.VolumeDescriptorType, err)
	}
	copy(data[consts.ISO9660_VOLUME_DESC_HEADER_SIZE:], body[:])
	return data, nil
}

func unmarshalVolume(data [consts.ISO9660_SECTOR_SIZE]byte, h *VolumeDescriptorHeader, b *VolumeDescriptorBody, ucs2 bool) error {
	if err := h.Unmarshal([consts.ISO9660_VOLUME_DESC_HEADER_SIZE]byte(data[:consts.ISO9660_VOLUME_DESC_HEADER_SIZE])); err != nil {
		return fmt.Errorf("failed to unmarshal VolumeDescriptorHeader: %w", err)
	}
	if err := b.Unmarshal(data[consts.ISO9660_VOLUME_DESC_HEADER_SIZE:], ucs2); err != nil {
		return fmt.Errorf("failed to unmarshal %s volume descriptor: %w", h.VolumeDescriptorType, err)
	}
	return nil
}

func putIdentifier(dst []byte, s string, ucs2 bool) {
	if ucs2 {
		copy(dst, helpers.PadUCS2(encoding.EncodeUCS2BigEndian(s), len(dst)))
		return
	}
	copy(dst, helpers.PadString(s, len(dst)))
}

func getIdentifier(src []byte, ucs2 bool) string {
	if ucs2 {
		return helpers.TrimIdentifier(encoding.DecodeUCS2BigEndian(src))
	}
	return helpers.TrimIdentifier(string(src))
}

// Marshal converts the body into its 2041‑byte on‑disk representation. String fields are padded with
// consts.ISO9660_FILLER, or encoded as UCS-2 and padded with U+0020 when ucs2 is set.
func (vdb *VolumeDescriptorBody) Marshal(ucs2 bool) ([PRIMARY_VOLUME_DESCRIPTOR_BODY_SIZE]byte, error) {
	var data [PRIMARY_VOLUME_DESCRIPTOR_BODY_SIZE]byte
	offset := 0

	// 1. volumeFlags: 1 byte.
	data[offset] = vdb.VolumeFlags
	offset++

	// 2. systemIdentifier: 32 bytes.
	putIdentifier(data[offset:offset+32], vdb.SystemIdentifier, ucs2)
	offset += 32

	// 3. volumeIdentifier: 32 bytes.
	putIdentifier(data[offset:offset+32], vdb.VolumeIdentifier, ucs2)
	offset += 32

	// 4. unused: 8 bytes.
	offset += 8

	// 5. volumeSpaceSize: 8 bytes (both-byte orders for uint32).
	vsBytes := encoding.MarshalBothByteOrders32(vdb.VolumeSpaceSize)
	copy(data[offset:offset+8], vsBytes[:])
	offset += 8

	// 6. escapeSequences: 32 bytes.
	copy(data[offset:offset+32], vdb.EscapeSequences[:])
	offset += 32

	// 7. volumeSetSize, volumeSequenceNumber, logicalBlockSize: 4 bytes each (both-byte orders for uint16).
	for _, v := range []uint16{vdb.VolumeSetSize, vdb.VolumeSequenceNumber, vdb.LogicalBlockSize} {
		b := encoding.MarshalBothByteOrders16(v)
		copy(data[offset:offset+4], b[:])
		offset += 4
	}

	// 8. pathTableSize: 8 bytes (both-byte orders for uint32).
	ptsBytes := encoding.MarshalBothByteOrders32(vdb.PathTableSize)
	copy(data[offset:offset+8], ptsBytes[:])
	offset += 8

	// 9. L path table locations: 4 bytes each, little-endian.
	binary.LittleEndian.PutUint32(data[offset:offset+4], vdb.LocationOfTypeLPathTable)
	binary.LittleEndian.PutUint32(data[offset+4:offset+8], vdb.LocationOfOptionalTypeLPathTable)
	offset += 8

	// 10. M path table locations: 4 bytes each, big-endian.
	binary.BigEndian.PutUint32(data[offset:offset+4], vdb.LocationOfTypeMPathTable)
	binary.BigEndian.PutUint32(data[offset+4:offset+8], vdb.LocationOfOptionalTypeMPathTable)
	offset += 8

	// 11. rootDirectoryRecord: 34 bytes.
	if vdb.RootDirectoryRecord[0] != consts.ISO9660_ROOT_RECORD_SIZE {
		return data, fmt.Errorf("root directory record has length %d, expected %d",
			vdb.RootDirectoryRecord[0], consts.ISO9660_ROOT_RECORD_SIZE)
	}
	copy(data[offset:offset+34], vdb.RootDirectoryRecord[:])
	offset += 34

	// 12. volume set, publisher, data preparer and application identifiers: 128 bytes each.
	for _, s := range []string{vdb.VolumeSetIdentifier, vdb.PublisherIdentifier, vdb.DataPreparerIdentifier, vdb.ApplicationIdentifier} {
		putIdentifier(data[offset:offset+128], s, ucs2)
		offset += 128
	}

	// 13. copyright, abstract and bibliographic file identifiers: 37 bytes each.
	for _, s := range []string{vdb.CopyrightFileIdentifier, vdb.AbstractFileIdentifier, vdb.BibliographicFileIdentifier} {
		putIdentifier(data[offset:offset+37], s, ucs2)
		offset += 37
	}

	// 14. creation, modification, expiration and effective dates: 17 bytes each.
	for _, t := range []time.Time{vdb.VolumeCreationDateAndTime, vdb.VolumeModificationDateAndTime,
		vdb.VolumeExpirationDateAndTime, vdb.VolumeEffectiveDateAndTime} {
		b, err := encoding.MarshalDateTime(t)
		if err != nil {
			return data, fmt.Errorf("failed to marshal volume date at offset %d: %w", offset, err)
		}
		copy(data[offset:offset+17], b[:])
		offset += 17
	}

	// 15. fileStructureVersion: 1 byte, followed by 1 reserved byte.
	data[offset] = vdb.FileStructureVersion
	offset += 2

	// 16. applicationUse: 512 bytes.
	copy(data[offset:offset+consts.ISO9660_APPLICATION_USE_SIZE], vdb.ApplicationUse[:])
	offset += consts.ISO9660_APPLICATION_USE_SIZE

	// 17. reserved: 653 bytes.
	offset += PRIMARY_RESERVED_FIELD2_SIZE

	if offset != PRIMARY_VOLUME_DESCRIPTOR_BODY_SIZE {
		return data, fmt.Errorf("marshal error: expected offset %d, got %d", PRIMARY_VOLUME_DESCRIPTOR_BODY_SIZE, offset)
	}
	return data, nil
}

// Unmarshal parses a 2041-byte slice into the body. Only the little-endian half of both-byte order fields is read.
// Dates that cannot be parsed are left as the zero time.
func (vdb *VolumeDescriptorBody) Unmarshal(data []byte, ucs2 bool) error {
	if len(data) < PRIMARY_VOLUME_DESCRIPTOR_BODY_SIZE {
		return fmt.Errorf("data too short: expected %d bytes, got %d", PRIMARY_VOLUME_DESCRIPTOR_BODY_SIZE, len(data))
	}
	offset := 0

	vdb.VolumeFlags = data[offset]
	offset++

	vdb.SystemIdentifier = getIdentifier(data[offset:offset+32], ucs2)
	offset += 32
	vdb.VolumeIdentifier = getIdentifier(data[offset:offset+32], ucs2)
	offset += 32
	offset += 8

	vdb.VolumeSpaceSize = encoding.UnmarshalUint32LSBMSB([8]byte(data[offset : offset+8]))
	offset += 8

	copy(vdb.EscapeSequences[:], data[offset:offset+32])
	offset += 32

	vdb.VolumeSetSize = encoding.UnmarshalUint16LSBMSB([4]byte(data[offset : offset+4]))
	vdb.VolumeSequenceNumber = encoding.UnmarshalUint16LSBMSB([4]byte(data[offset+4 : offset+8]))
	vdb.LogicalBlockSize = encoding.UnmarshalUint16LSBMSB([4]byte(data[offset+8 : offset+12]))
	offset += 12

	vdb.PathTableSize = encoding.UnmarshalUint32LSBMSB([8]byte(data[offset : offset+8]))
	offset += 8

	vdb.LocationOfTypeLPathTable = binary.LittleEndian.Uint32(data[offset : offset+4])
	vdb.LocationOfOptionalTypeLPathTable = binary.LittleEndian.Uint32(data[offset+4 : offset+8])
	offset += 8
	vdb.LocationOfTypeMPathTable = binary.BigEndian.Uint32(data[offset : offset+4])
	vdb.LocationOfOptionalTypeMPathTable = binary.BigEndian.Uint32(data[offset+4 : offset+8])
	offset += 8

	copy(vdb.RootDirectoryRecord[:], data[offset:offset+34])
	offset += 34

	for _, dst := range []*string{&vdb.VolumeSetIdentifier, &vdb.PublisherIdentifier, &vdb.DataPreparerIdentifier, &vdb.ApplicationIdentifier} {
		*dst = getIdentifier(data[offset:offset+128], ucs2)
		offset += 128
	}
	for _, dst := range []*string{&vdb.CopyrightFileIdentifier, &vdb.AbstractFileIdentifier, &vdb.BibliographicFileIdentifier} {
		*dst = getIdentifier(data[offset:offset+37], ucs2)
		offset += 37
	}
	for _, dst := range []*time.Time{&vdb.VolumeCreationDateAndTime, &vdb.VolumeModificationDateAndTime,
		&vdb.VolumeExpirationDateAndTime, &vdb.VolumeEffectiveDateAndTime} {
		t, err := encoding.UnmarshalDateTime([17]byte(data[offset : offset+17]))
		if err != nil {
			t = time.Time{}
		}
		*dst = t
		offset += 17
	}

	vdb.FileStructureVersion = data[offset]
	offset += 2

	copy(vdb.ApplicationUse[:], data[offset:offset+consts.ISO9660_APPLICATION_USE_SIZE])
	return nil
}
