package xattr

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/encoding"
)

const (
	// RECORD_FIXED_SIZE covers every field up to and including Length of Application Use.
	RECORD_FIXED_SIZE = 250
	// Record System Use Size is 64 bytes
	RECORD_SYSTEM_USE_SIZE = 64
)

// Record is the decoded fixed part of an Extended Attribute Record (ECMA-119 9.5). The record occupies the first
// blocks of a file's extent when the directory record announces a non-zero attribute record length.
type Record struct {
	//  | Encoding: BothByteOrder
	OwnerIdentification uint16
	//  | Encoding: BothByteOrder
	GroupIdentification uint16
	Permissions         Permissions
	// The four file dates use the 17-byte format; unspecified dates decode to the zero time.
	Created   time.Time
	Modified  time.Time
	Expires   time.Time
	Effective time.Time
	// Record Format, Record Attributes and Record Length describe record-structured files and are kept verbatim.
	RecordFormat     uint8
	RecordAttributes uint8
	RecordLength     uint16
	SystemIdentifier string
	SystemUse        [RECORD_SYSTEM_USE_SIZE]byte
	// Version should always be 1.
	Version           uint8
	EscapeSequenceLen uint8
	ApplicationUseLen uint16
}

// Marshal returns the fixed part of the record. Application use and escape sequences are never written.
func (r *Record) Marshal() ([RECORD_FIXED_SIZE]byte, error) {
	var b [RECORD_FIXED_SIZE]byte
	owner := encoding.MarshalBothByteOrders16(r.OwnerIdentification)
	copy(b[0:4], owner[:])
	group := encoding.MarshalBothByteOrders16(r.GroupIdentification)
	copy(b[4:8], group[:])
	binary.BigEndian.PutUint16(b[8:10], uint16(r.Permissions))

	for i, t := range []time.Time{r.Created, r.Modified, r.Expires, r.Effective} {
		dt, err := encoding.MarshalDateTime(t)
		if err != nil {
			return b, fmt.Errorf("failed to marshal file date %d: %w", i, err)
		}
		copy(b[10+17*i:], dt[:])
	}

	b[78] = r.RecordFormat
	b[79] = r.RecordAttributes
	rl := encoding.MarshalBothByteOrders16(r.RecordLength)
	copy(b[80:84], rl[:])
	copy(b[84:116], fmt.Sprintf("%-32s", r.SystemIdentifier))
	copy(b[116:180], r.SystemUse[:])
	b[180] = r.Version
	return b, nil
}

// Unmarshal decodes the fixed part of the record from data. Dates that fail to decode are left as the zero time;
// the permission field is validated.
func (r *Record) Unmarshal(data []byte) error {
	if len(data) < RECORD_FIXED_SIZE {
		return fmt.Errorf("extended attribute record needs %d bytes, have %d", RECORD_FIXED_SIZE, len(data))
	}

	r.OwnerIdentification = encoding.UnmarshalUint16LSBMSB([4]byte(data[0:4]))
	r.GroupIdentification = encoding.UnmarshalUint16LSBMSB([4]byte(data[4:8]))
	r.Permissions = Permissions(binary.BigEndian.Uint16(data[8:10]))
	if err := r.Permissions.Validate(); err != nil {
		return err
	}

	dates := []*time.Time{&r.Created, &r.Modified, &r.Expires, &r.Effective}
	for i, d := range dates {
		t, err := encoding.UnmarshalDateTime([17]byte(data[10+17*i : 27+17*i]))
		if err != nil {
			t = time.Time{}
		}
		*d = t
	}

	r.RecordFormat = data[78]
	r.RecordAttributes = data[79]
	r.RecordLength = encoding.UnmarshalUint16LSBMSB([4]byte(data[80:84]))
	r.SystemIdentifier = trimRight(data[84:116])
	copy(r.SystemUse[:], data[116:180])
	r.Version = data[180]
	r.EscapeSequenceLen = data[181]
	r.ApplicationUseLen = encoding.UnmarshalUint16LSBMSB([4]byte(data[246:250]))
	return nil
}

func trimRight(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end])
}
