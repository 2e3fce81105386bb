package pathtable

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
)

// NewPathTable reads a path table of size bytes starting at block location.
func NewPathTable(reader io.ReaderAt, location uint32, size int, littleEndian bool) (*PathTable, error) {
	data := make([]byte, size)
	if _, err := reader.ReadAt(data, int64(location)*consts.ISO9660_SECTOR_SIZE); err != nil {
		return nil, fmt.Errorf("failed to read path table: %w", err)
	}
	pt, err := ParsePathTable(data, littleEndian)
	if err != nil {
		return nil, err
	}
	pt.Location = location
	return pt, nil
}

// ParsePathTable decodes every record in data.
func ParsePathTable(data []byte, littleEndian bool) (*PathTable, error) {
	pt := &PathTable{LittleEndian: littleEndian, Size: uint32(len(data))}
	offset := 0
	for offset < len(data) {
		record := &PathTableRecord{}
		if err := record.Unmarshal(data[offset:], littleEndian); err != nil {
			return nil, fmt.Errorf("path table record at offset %d: %w", offset, err)
		}
		pt.Records = append(pt.Records, record)
		offset += record.Length()
	}
	return pt, nil
}

// PathTable represents a full path table, containing multiple records.
type PathTable struct {
	Records      []*PathTableRecord
	LittleEndian bool
	// Location is the first block of the table, zero when the table was parsed from memory.
	Location uint32 `json:"location"`
	// Size of the table in bytes.
	Size uint32 `json:"size"`
}

// Marshal converts a PathTable into a contiguous byte array.
func (pt *PathTable) Marshal() ([]byte, error) {
	var buf []byte
	for _, record := range pt.Records {
		recBytes, err := record.Marshal(pt.LittleEndian)
		if err != nil {
			return nil, err
		}
		buf = append(buf, recBytes...)
	}
	return buf, nil
}

type PathTableRecord struct {
	// Extended Attribute Record Length specifies the Extended Attribute Record length if an Extended Attribute Record
	// is recorded. Otherwise, this number will be zero.
	ExtendedAttributeRecordLength uint8 `json:"extended_atrribute_record_length"`
	// Location of Extent specifies the Logical Block Number of the first Logical Block allocated to the Extent in which
	// the directory is recorded.
	LocationOfExtent uint32 `json:"location_of_extent"`
	// Parent Directory Number specifies the record number in the Path Table for the parent directory of the directory.
	ParentDirectoryNumber uint16 `json:"parent_directory_number"`
	// Directory Identifier holds the raw identifier: d-characters for the primary hierarchy, UCS-2 for Joliet, or a
	// single 0x00 for the root. Its length is recorded in the first byte of the record, and a 0x00 padding byte
	// follows when that length is odd.
	DirectoryIdentifier []byte `json:"directory_identifier"`
}

// Length returns the on-disk size of the record including the padding byte.
func (ptr *PathTableRecord) Length() int {
	n := consts.ISO9660_PATH_TABLE_RECORD_FIXED_SIZE + len(ptr.DirectoryIdentifier)
	if len(ptr.DirectoryIdentifier)%2 != 0 {
		n++
	}
	return n
}

// Marshal converts a single PathTableRecord into a byte slice.
func (ptr *PathTableRecord) Marshal(littleEndian bool) ([]byte, error) {
	n := len(ptr.DirectoryIdentifier)
	if n == 0 || n > 255 {
		return nil, fmt.Errorf("invalid directory identifier length %d", n)
	}

	buf := make([]byte, ptr.Length())
	buf[0] = uint8(n)
	buf[1] = ptr.ExtendedAttributeRecordLength

	var order binary.ByteOrder = binary.BigEndian
	if littleEndian {
		order = binary.LittleEndian
	}
	order.PutUint32(buf[2:6], ptr.LocationOfExtent)
	order.PutUint16(buf[6:8], ptr.ParentDirectoryNumber)

	copy(buf[consts.ISO9660_PATH_TABLE_RECORD_FIXED_SIZE:], ptr.DirectoryIdentifier)
	return buf, nil
}

// Unmarshal decodes a single PathTableRecord from a byte slice.
func (ptr *PathTableRecord) Unmarshal(data []byte, littleEndian bool) error {
	if len(data) < consts.ISO9660_PATH_TABLE_RECORD_FIXED_SIZE {
		return fmt.Errorf("data too short to contain a PathTableRecord")
	}

	n := int(data[0])
	if n == 0 {
		return fmt.Errorf("zero length directory identifier")
	}
	ptr.ExtendedAttributeRecordLength = data[1]

	var order binary.ByteOrder = binary.BigEndian
	if littleEndian {
		order = binary.LittleEndian
	}
	ptr.LocationOfExtent = order.Uint32(data[2:6])
	ptr.ParentDirectoryNumber = order.Uint16(data[6:8])

	offset := consts.ISO9660_PATH_TABLE_RECORD_FIXED_SIZE
	if len(data) < offset+n {
		return fmt.Errorf("data too short for DirectoryIdentifier")
	}
	ptr.DirectoryIdentifier = append([]byte(nil), data[offset:offset+n]...)
	return nil
}
