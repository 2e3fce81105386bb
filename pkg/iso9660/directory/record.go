package directory

import (
	"fmt"
	"time"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/encoding"
)

// DirectoryRecord is the on-disk layout of a single ECMA-119 directory record (section 9.1).
type DirectoryRecord struct {
	// Length Of Directory Record specifies the length of the directory record in bytes.
	LengthOfDirectoryRecord uint8 `json:"length_of_directory_record"`
	// Extended Attribute Record Length is zero unless an Extended Attribute Record precedes the file data.
	ExtendedAttributeRecordLength uint8 `json:"extended_attribute_record_length"`
	// Location of Extent is the Logical Block Number of the first block of the extent.
	//  | Encoding: BothByteOrder
	LocationOfExtent uint32 `json:"location_of_extent"`
	// Data Length is the length of the file section in bytes.
	//  | Encoding: BothByteOrder
	DataLength uint32 `json:"data_length"`
	// Recording Date and Time of the extent.
	//  | Encoding: 7-byte time format
	RecordingDateAndTime time.Time `json:"recording_date_and_time"`
	FileFlags            FileFlags `json:"file_flags"`
	// File Unit Size and Interleave Gap Size are zero unless the file is recorded in interleaved mode.
	FileUnitSize      uint8 `json:"file_unit_size"`
	InterleaveGapSize uint8 `json:"interleave_gap_size"`
	// Volume Sequence Number of the volume holding the extent.
	//  | Encoding: BothByteOrder
	VolumeSequenceNumber uint16 `json:"volume_sequence_number"`
	// File Identifier holds the raw identifier bytes: d-characters for the primary hierarchy, UCS-2 for Joliet, or a
	// single 0x00 / 0x01 byte for the self and parent entries.
	FileIdentifier []byte `json:"file_identifier"`
	// Padding Field is not stored; a single 0x00 follows the identifier whenever its length is even.
	// System Use holds whatever follows the padding up to LengthOfDirectoryRecord. A copy of the source buffer is kept
	// since directory blocks are read into reused buffers.
	SystemUse []byte `json:"system_use"`
}

// Marshal converts the DirectoryRecord into its on‑disk byte representation.
// It computes and sets the LengthOfDirectoryRecord field and handles the padding byte for the File Identifier and the
// trailing pad that keeps the record length even.
func (dr *DirectoryRecord) Marshal() ([]byte, error) {
	buf := make([]byte, 0, consts.ISO9660_DIRECTORY_RECORD_FIXED_SIZE+len(dr.FileIdentifier)+1+len(dr.SystemUse)+1)

	// Reserve a byte for LengthOfDirectoryRecord; we'll set it at the end.
	buf = append(buf, 0, dr.ExtendedAttributeRecordLength)

	locBytes := encoding.MarshalBothByteOrders32(dr.LocationOfExtent)
	buf = append(buf, locBytes[:]...)
	dataLenBytes := encoding.MarshalBothByteOrders32(dr.DataLength)
	buf = append(buf, dataLenBytes[:]...)

	recTimeBytes, err := encoding.MarshalRecordingDateTime(dr.RecordingDateAndTime)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RecordingDateAndTime: %w", err)
	}
	buf = append(buf, recTimeBytes[:]...)

	buf = append(buf, dr.FileFlags.Marshal(), dr.FileUnitSize, dr.InterleaveGapSize)

	volSeqBytes := encoding.MarshalBothByteOrders16(dr.VolumeSequenceNumber)
	buf = append(buf, volSeqBytes[:]...)

	fiLen := len(dr.FileIdentifier)
	if fiLen == 0 || fiLen > 222 {
		return nil, fmt.Errorf("invalid file identifier length %d", fiLen)
	}
	buf = append(buf, uint8(fiLen))
	buf = append(buf, dr.FileIdentifier...)
	if fiLen%2 == 0 {
		buf = append(buf, 0x00)
	}

	buf = append(buf, dr.SystemUse...)
	if len(buf)%2 != 0 {
		buf = append(buf, 0x00)
	}
	if len(buf) > consts.ISO9660_DIRECTORY_RECORD_MAX_SIZE {
		return nil, fmt.Errorf("directory record length %d exceeds %d bytes", len(buf), consts.ISO9660_DIRECTORY_RECORD_MAX_SIZE)
	}

	buf[0] = uint8(len(buf))
	dr.LengthOfDirectoryRecord = uint8(len(buf))
	return buf, nil
}

// Unmarshal decodes a DirectoryRecord from the provided byte slice. It expects that data contains at least
// LengthOfDirectoryRecord bytes. Reserved flag bits, a non-zero padding byte and an invalid recording date are
// tolerated; only structural problems are reported.
func (dr *DirectoryRecord) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return fmt.Errorf("data too short to contain a DirectoryRecord")
	}

	recordLength := int(data[0])
	dr.LengthOfDirectoryRecord = data[0]
	if recordLength < consts.ISO9660_DIRECTORY_RECORD_FIXED_SIZE+1 {
		return fmt.Errorf("record length %d is shorter than the fixed part", recordLength)
	}
	if len(data) < recordLength {
		return fmt.Errorf("data length %d is less than expected record length %d", len(data), recordLength)
	}

	dr.ExtendedAttributeRecordLength = data[1]
	dr.LocationOfExtent = encoding.UnmarshalUint32LSBMSB([8]byte(data[2:10]))
	dr.DataLength = encoding.UnmarshalUint32LSBMSB([8]byte(data[10:18]))

	recTime, err := encoding.UnmarshalRecordingDateTime([7]byte(data[18:25]))
	if err != nil {
		recTime = time.Time{}
	}
	dr.RecordingDateAndTime = recTime

	dr.FileFlags = UnmarshalFileFlags(data[25])
	dr.FileUnitSize = data[26]
	dr.InterleaveGapSize = data[27]
	dr.VolumeSequenceNumber = encoding.UnmarshalUint16LSBMSB([4]byte(data[28:32]))

	fiLen := int(data[32])
	offset := consts.ISO9660_DIRECTORY_RECORD_FIXED_SIZE
	if fiLen == 0 || offset+fiLen > recordLength {
		return fmt.Errorf("file identifier length %d does not fit in record of %d bytes", fiLen, recordLength)
	}
	dr.FileIdentifier = append([]byte(nil), data[offset:offset+fiLen]...)
	offset += fiLen
	if fiLen%2 == 0 {
		offset++
	}

	dr.SystemUse = nil
	if offset < recordLength {
		dr.SystemUse = append([]byte(nil), data[offset:recordLength]...)
	}
	return nil
}
