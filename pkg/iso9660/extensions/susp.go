package extensions

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/encoding"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
)

type SystemUseEntryType string

const (
	CONTINUATION_AREA          SystemUseEntryType = "CE"
	PADDING_FIELD              SystemUseEntryType = "PD"
	SHARING_PROTOCOL_INDICATOR SystemUseEntryType = "SP"
	AREA_TERMINATOR            SystemUseEntryType = "ST"
	EXTENSION_REFERENCE        SystemUseEntryType = "ER"
	EXTENSION_SELECTOR         SystemUseEntryType = "ES"
)

const (
	SUSP_VERSION        = 1
	SUSP_HEADER_SIZE    = 4
	SUSP_CHECK_BYTE_1   = 0xBE
	SUSP_CHECK_BYTE_2   = 0xEF
	susp_max_ce_follows = 16
	// CE_ENTRY_SIZE is the on-disk length of a CE entry.
	CE_ENTRY_SIZE = SUSP_HEADER_SIZE + 24
)

// SystemUseEntry is a single tagged entry of a System Use area.
type SystemUseEntry struct {
	Signature SystemUseEntryType
	Version   byte
	Data      []byte
}

// Length returns the on-disk length of the entry including its header.
func (e SystemUseEntry) Length() int {
	return SUSP_HEADER_SIZE + len(e.Data)
}

// Marshal returns the on-disk bytes of the entry.
func (e SystemUseEntry) Marshal() []byte {
	buf := make([]byte, 0, e.Length())
	buf = append(buf, e.Signature[0], e.Signature[1], byte(e.Length()), e.Version)
	return append(buf, e.Data...)
}

// Continuation is the location of a continuation area named by a CE entry.
type Continuation struct {
	Block  uint32
	Offset uint32
	Length uint32
}

// ParseSystemUseEntries splits a System Use area into entries. Parsing stops at padding, at an ST entry, or at the
// first malformed entry; in the last case the entries decoded so far are returned together with an error describing
// the offending entry.
func ParseSystemUseEntries(data []byte) ([]SystemUseEntry, error) {
	var entries []SystemUseEntry
	for offset := 0; offset < len(data); {
		if data[offset] == 0x00 {
			break
		}
		remaining := len(data) - offset
		if remaining < SUSP_HEADER_SIZE {
			return entries, fmt.Errorf("truncated system use entry at offset %d (%d bytes left)", offset, remaining)
		}
		entryLen := int(data[offset+2])
		if entryLen < SUSP_HEADER_SIZE || entryLen > remaining {
			return entries, fmt.Errorf("invalid system use entry length %d at offset %d", entryLen, offset)
		}
		entry := SystemUseEntry{
			Signature: SystemUseEntryType(data[offset : offset+2]),
			Version:   data[offset+3],
			Data:      append([]byte(nil), data[offset+SUSP_HEADER_SIZE:offset+entryLen]...),
		}
		if entry.Signature == AREA_TERMINATOR {
			break
		}
		entries = append(entries, entry)
		offset += entryLen
	}
	return entries, nil
}

// ReadSystemUse parses a System Use area and follows any continuation areas it names. Malformed entries end the
// affected area only; everything decoded before them is kept.
func ReadSystemUse(data []byte, reader io.ReaderAt, logger *logging.Logger) []SystemUseEntry {
	logger = logging.OrDefault(logger)
	visited := make(map[Continuation]bool)

	var all []SystemUseEntry
	area := data
	for follows := 0; ; follows++ {
		entries, err := ParseSystemUseEntries(area)
		if err != nil {
			logger.Debug("Stopped parsing system use area", "error", err)
		}
		var next *Continuation
		for _, e := range entries {
			if e.Signature == CONTINUATION_AREA {
				if ce, ok := parseContinuation(e.Data); ok {
					next = &ce
				}
				continue
			}
			all = append(all, e)
		}
		if next == nil || reader == nil || visited[*next] || follows >= susp_max_ce_follows {
			return all
		}
		visited[*next] = true
		if next.Offset+next.Length > consts.ISO9660_SECTOR_SIZE {
			logger.Debug("Continuation area crosses a block boundary", "block", next.Block, "offset", next.Offset)
			return all
		}
		area = make([]byte, next.Length)
		pos := int64(next.Block)*consts.ISO9660_SECTOR_SIZE + int64(next.Offset)
		if _, err := reader.ReadAt(area, pos); err != nil {
			logger.Debug("Failed to read continuation area", "block", next.Block, "error", err)
			return all
		}
		logger.Trace("Following continuation area", "block", next.Block, "offset", next.Offset, "length", next.Length)
	}
}

// NewContinuationEntry returns a CE entry pointing at the continuation area described by c.
func NewContinuationEntry(c Continuation) SystemUseEntry {
	data := make([]byte, 0, 24)
	for _, v := range []uint32{c.Block, c.Offset, c.Length} {
		b := encoding.MarshalBothByteOrders32(v)
		data = append(data, b[:]...)
	}
	return SystemUseEntry{Signature: CONTINUATION_AREA, Version: SUSP_VERSION, Data: data}
}

func parseContinuation(data []byte) (Continuation, bool) {
	if len(data) < 24 {
		return Continuation{}, false
	}
	return Continuation{
		Block:  binary.LittleEndian.Uint32(data[0:4]),
		Offset: binary.LittleEndian.Uint32(data[8:12]),
		Length: binary.LittleEndian.Uint32(data[16:20]),
	}, true
}

// HasSharingProtocol reports whether the entries start with a valid SP entry and returns its skip length.
func HasSharingProtocol(entries []SystemUseEntry) (bool, int) {
	if len(entries) == 0 || entries[0].Signature != SHARING_PROTOCOL_INDICATOR {
		return false, 0
	}
	d := entries[0].Data
	if len(d) < 3 || d[0] != SUSP_CHECK_BYTE_1 || d[1] != SUSP_CHECK_BYTE_2 {
		return false, 0
	}
	return true, int(d[2])
}

// NewSharingProtocolEntry returns the SP entry written at the start of the root directory's self record.
func NewSharingProtocolEntry() SystemUseEntry {
	return SystemUseEntry{
		Signature: SHARING_PROTOCOL_INDICATOR,
		Version:   SUSP_VERSION,
		Data:      []byte{SUSP_CHECK_BYTE_1, SUSP_CHECK_BYTE_2, 0},
	}
}

// NewExtensionsReferenceEntry returns an ER entry identifying an extension.
func NewExtensionsReferenceEntry(version byte, id, descriptor, source string) SystemUseEntry {
	data := []byte{byte(len(id)), byte(len(descriptor)), byte(len(source)), version}
	data = append(data, id...)
	data = append(data, descriptor...)
	data = append(data, source...)
	return SystemUseEntry{Signature: EXTENSION_REFERENCE, Version: SUSP_VERSION, Data: data}
}

// ExtensionIdentifier returns the identifier of an ER entry.
func ExtensionIdentifier(e SystemUseEntry) (string, bool) {
	if e.Signature != EXTENSION_REFERENCE || len(e.Data) < 4 {
		return "", false
	}
	n := int(e.Data[0])
	if 4+n > len(e.Data) {
		return "", false
	}
	return string(e.Data[4 : 4+n]), true
}
