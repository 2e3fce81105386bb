package encoding

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

// ucs2 is the Joliet identifier encoding. Byte order marks are neither written nor expected.
var ucs2 = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// MarshalBothByteOrders32 converts a uint32 value into an 8-byte field that
// encodes the value in both little‑endian and big‑endian orders.
// The resulting byte order is: (yz, wx, uv, st, st, uv, wx, yz),
// where (st uv wx yz) is the hexadecimal representation of the value.
func MarshalBothByteOrders32(val uint32) [8]byte {
	var data [8]byte
	binary.LittleEndian.PutUint32(data[0:4], val)
	binary.BigEndian.PutUint32(data[4:8], val)
	return data
}

// UnmarshalUint32LSBMSB decodes an 8-byte both-byte-order field. The little-endian half is authoritative; the
// big-endian mirror is not consulted so images with a damaged mirror remain readable.
func UnmarshalUint32LSBMSB(data [8]byte) uint32 {
	return binary.LittleEndian.Uint32(data[0:4])
}

// MarshalBothByteOrders16 converts a uint16 value into a 4-byte field that
// encodes the value in both little‑endian and big‑endian orders.
// For example, for the value 0x1234, it returns [0x34, 0x12, 0x12, 0x34].
func MarshalBothByteOrders16(val uint16) [4]byte {
	var data [4]byte
	binary.LittleEndian.PutUint16(data[0:2], val)
	binary.BigEndian.PutUint16(data[2:4], val)
	return data
}

// UnmarshalUint16LSBMSB decodes a 4-byte both-byte-order field using the little-endian half.
func UnmarshalUint16LSBMSB(data [4]byte) uint16 {
	return binary.LittleEndian.Uint16(data[0:2])
}

// BothByteOrdersAgree reports whether the two halves of a both-byte-order field (4 or 8 bytes) carry the same value.
func BothByteOrdersAgree(data []byte) bool {
	switch len(data) {
	case 4:
		return binary.LittleEndian.Uint16(data[0:2]) == binary.BigEndian.Uint16(data[2:4])
	case 8:
		return binary.LittleEndian.Uint32(data[0:4]) == binary.BigEndian.Uint32(data[4:8])
	default:
		return false
	}
}

// MarshalDateTime converts a time.Time into a 17-byte field following ISO9660 8.4.26.1.
// The first 16 bytes contain ASCII digits in the format:
//
//	YYYY MM DD hh mm ss cc
//
// and the 17th byte is the time zone offset (in 15-minute intervals) as a signed integer.
// Note: This format is used in Volume Descriptors
func MarshalDateTime(t time.Time) ([17]byte, error) {
	var out [17]byte

	// If zero time => ASCII '0' x16 + final offset=0 => "unspecified"
	if t.IsZero() {
		for i := 0; i < 16; i++ {
			out[i] = '0'
		}
		return out, nil
	}

	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	hundredths := t.Nanosecond() / 10_000_000
	if y < 1 || y > 9999 {
		return out, fmt.Errorf("year %d cannot be represented in a volume date", y)
	}

	s := fmt.Sprintf("%04d%02d%02d%02d%02d%02d%02d", y, int(m), d, hh, mm, ss, hundredths)
	copy(out[:16], s)

	_, offsetSec := t.Zone()
	offset15 := offsetSec / 900
	if offset15 < -48 || offset15 > 52 {
		return [17]byte{}, fmt.Errorf("offset %d out of ISO9660 bounds", offset15)
	}

	out[16] = byte(int8(offset15))
	return out, nil
}

// UnmarshalDateTime converts a 17-byte ISO9660 date/time field into a time.Time.
// It expects the first 16 bytes to be ASCII digits representing
// YYYY MM DD hh mm ss cc, and the 17th byte as the offset in 15-minute intervals.
// Note: This format is used in Volume Descriptors
func UnmarshalDateTime(b [17]byte) (time.Time, error) {
	isUnspecified := true
	for i := 0; i < 16; i++ {
		if b[i] != '0' && b[i] != 0 && b[i] != ' ' {
			isUnspecified = false
			break
		}
	}
	if isUnspecified {
		return time.Time{}, nil
	}

	var (
		year, mon, day int
		hour, min, sec int
		hundredths     int
	)
	_, err := fmt.Sscanf(string(b[:16]), "%4d%2d%2d%2d%2d%2d%2d",
		&year, &mon, &day, &hour, &min, &sec, &hundredths)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse error: %v", err)
	}

	offset15 := int8(b[16])
	if offset15 < -48 || offset15 > 52 {
		return time.Time{}, fmt.Errorf("offset %d out of ISO9660 bounds", offset15)
	}
	return time.Date(year, time.Month(mon), day, hour, min, sec, hundredths*10_000_000, zone(int(offset15))), nil
}

// MarshalRecordingDateTime converts a time.Time into a 7-byte field according
// to Table 9 – Recording Date and Time. The zero time is written as seven zero bytes.
// Note: This type format is used in DirectoryRecords
func MarshalRecordingDateTime(t time.Time) ([7]byte, error) {
	var b [7]byte
	if t.IsZero() {
		return b, nil
	}

	year, month, day := t.Date()
	hour, minute, second := t.Clock()

	// The field stores the number of years since 1900. Year byte 0 is read back as "unknown", so 1900 itself
	// cannot be recorded.
	if year < 1901 || year > 2155 {
		return b, fmt.Errorf("year %d out of range for Recording Date and Time (must be between 1901 and 2155)", year)
	}
	b[0] = byte(year - 1900)
	b[1] = byte(month)
	b[2] = byte(day)
	b[3] = byte(hour)
	b[4] = byte(minute)
	b[5] = byte(second)

	_, offsetSec := t.Zone()
	offset15 := offsetSec / (15 * 60)
	if offset15 < -48 || offset15 > 52 {
		return b, fmt.Errorf("time zone offset %d (in 15-minute intervals: %d) is out of allowed range", offsetSec, offset15)
	}
	b[6] = byte(int8(offset15))
	return b, nil
}

// UnmarshalRecordingDateTime converts a 7-byte Recording Date and Time field into a time.Time.
// The fields are interpreted as follows:
//
//	Byte 1: years since 1900 (0 means the date is not recorded),
//	Byte 2: month (1-12),
//	Byte 3: day,
//	Byte 4: hour,
//	Byte 5: minute,
//	Byte 6: second,
//	Byte 7: offset from GMT in 15-minute intervals (as a signed value).
//
// An unknown date decodes to the zero time.
// Note: This type format is used in DirectoryRecords
func UnmarshalRecordingDateTime(b [7]byte) (time.Time, error) {
	if b[0] == 0 {
		return time.Time{}, nil
	}
	if b[1] < 1 || b[1] > 12 || b[2] < 1 || b[2] > 31 || b[3] > 23 || b[4] > 59 || b[5] > 60 {
		return time.Time{}, fmt.Errorf("invalid recording date/time %v", b)
	}
	offset15 := int8(b[6])
	if offset15 < -48 || offset15 > 52 {
		offset15 = 0
	}
	return time.Date(int(b[0])+1900, time.Month(b[1]), int(b[2]), int(b[3]), int(b[4]), int(b[5]), 0,
		zone(int(offset15))), nil
}

// zone returns UTC for a zero offset and a numeric fixed zone otherwise.
func zone(offset15 int) *time.Location {
	if offset15 == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset15*900)
}

// DecodeUCS2BigEndian converts a UCS-2 Big-Endian encoded identifier to a Go (UTF-8) string. A trailing odd byte is
// ignored.
func DecodeUCS2BigEndian(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	out, err := ucs2.NewDecoder().Bytes(b)
	if err != nil {
		units := make([]uint16, len(b)/2)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(b[2*i:])
		}
		return string(utf16.Decode(units))
	}
	return string(out)
}

// EncodeUCS2BigEndian converts a Go (UTF-8) string into a UTF-16
// (big-endian) byte slice. Any runes above U+FFFF become surrogate pairs.
func EncodeUCS2BigEndian(s string) []byte {
	out, err := ucs2.NewEncoder().Bytes([]byte(s))
	if err != nil {
		units := utf16.Encode([]rune(s))
		out = make([]byte, 2*len(units))
		for i, u := range units {
			binary.BigEndian.PutUint16(out[2*i:], u)
		}
	}
	return out
}
