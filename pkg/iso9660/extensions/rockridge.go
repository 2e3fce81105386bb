package extensions

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/encoding"
)

const (
	ROCK_RIDGE_VERSION = 1
)

type RockRidgeEntryType string

const (
	//POSIX file permissions (owner, group, other)
	POSIX_FILE_PERMS RockRidgeEntryType = "PX"
	//Device numbers for block/character device nodes (major/minor)
	POSIX_DEVICE_NUM RockRidgeEntryType = "PN"
	//Symbolic link data (path components,flags)
	SYMBOLIC_LINK RockRidgeEntryType = "SL"
	//AlternateName (used for long filenames, case preservation, etc.)
	ALTERNATE_NAME RockRidgeEntryType = "NM"
	//ChildLink (used for directory relocation chains)
	CHILD_LINK RockRidgeEntryType = "CL"
	//ParentLink (links a relocated directory back to its parent)
	PARENT_LINK RockRidgeEntryType = "PL"
	//Marks a directory that has been relocated
	RELOCATED_DIR RockRidgeEntryType = "RE"
	//Time stamp information (creation, modification, access,etc)
	TIME_STAMPS RockRidgeEntryType = "TF"
	//An older “Rock Ridge” extension signature (now typically replaced by ER).
	ROCK_RIDGE RockRidgeEntryType = "RR"
)

// NM flags
const (
	NM_CONTINUE = 0x01
	NM_CURRENT  = 0x02
	NM_PARENT   = 0x04
)

// SL component flags
const (
	SL_CONTINUE = 0x01
	SL_CURRENT  = 0x02
	SL_PARENT   = 0x04
	SL_ROOT     = 0x08
)

// TF flags
const (
	TF_CREATION   = 0x01
	TF_MODIFY     = 0x02
	TF_ACCESS     = 0x04
	TF_ATTRIBUTES = 0x08
	TF_BACKUP     = 0x10
	TF_EXPIRATION = 0x20
	TF_EFFECTIVE  = 0x40
	TF_LONG_FORM  = 0x80
)

// POSIX file type bits carried in PX modes.
const (
	S_IFMT   = 0170000
	S_IFLNK  = 0120000
	S_IFREG  = 0100000
	S_IFDIR  = 0040000
	px_short = 32
	px_long  = 40
)

// RockRidgeExtensions holds everything decoded from the Rock Ridge entries of a single directory record.
type RockRidgeExtensions struct {
	// SP - the area starts with a sharing protocol indicator
	SharingProtocol bool
	SkipBytes       int

	// ER - extension identifiers announced by this record
	ExtensionIDs []string

	// PX - POSIX file attributes
	Mode   *uint32
	Links  *uint32
	UID    *uint32
	GID    *uint32
	Serial *uint32

	// PN - Device number (if block/char device)
	Major *uint32
	Minor *uint32

	// SL - Symbolic link target path
	SymlinkTarget *string

	// NM - Alternate name (long filename or case-sensitive filename)
	AlternateName *string
	NameIsCurrent bool
	NameIsParent  bool

	// CL / PL / RE - directory relocation
	ChildLinkLBA  *uint32
	ParentLinkLBA *uint32
	IsRelocated   bool

	// TF - Time stamps
	CreationTime     *time.Time
	ModificationTime *time.Time
	AccessTime       *time.Time

	// RR - legacy flags byte
	RRFlags *byte
}

// HasRockRidge determines if any Rock Ridge extensions were set.
func (r *RockRidgeExtensions) HasRockRidge() bool {
	if r == nil {
		return false
	}
	return r.SharingProtocol || len(r.ExtensionIDs) > 0 || r.Mode != nil || r.Major != nil ||
		r.SymlinkTarget != nil || r.AlternateName != nil || r.NameIsCurrent || r.NameIsParent ||
		r.ChildLinkLBA != nil || r.ParentLinkLBA != nil || r.IsRelocated || r.CreationTime != nil ||
		r.ModificationTime != nil || r.AccessTime != nil || r.RRFlags != nil
}

// FileMode converts the PX mode into an os.FileMode. ok is false when no PX entry was present.
func (r *RockRidgeExtensions) FileMode() (mode os.FileMode, ok bool) {
	if r == nil || r.Mode == nil {
		return 0, false
	}
	m := *r.Mode
	mode = os.FileMode(m & 0777)
	switch m & S_IFMT {
	case S_IFDIR:
		mode |= os.ModeDir
	case S_IFLNK:
		mode |= os.ModeSymlink
	}
	return mode, true
}

// UnmarshalRockRidge decodes the Rock Ridge entries of a directory record's system use area. skip is the number of
// leading bytes announced by the root SP entry. A malformed entry stops parsing; the entries decoded before it are
// returned together with the error.
func UnmarshalRockRidge(systemUse []byte, skip int) (*RockRidgeExtensions, error) {
	if skip > len(systemUse) {
		skip = len(systemUse)
	}
	entries, err := ParseSystemUseEntries(systemUse[skip:])
	return ParseRockRidge(entries), err
}

// ParseRockRidge folds already split system use entries into a RockRidgeExtensions value. Entries whose payload is too
// short for their type are ignored.
func ParseRockRidge(entries []SystemUseEntry) *RockRidgeExtensions {
	rr := &RockRidgeExtensions{}
	var name strings.Builder
	nameSeen := false
	var link []string
	linkSeen := false
	linkRoot := false
	var pending strings.Builder
	pendingOpen := false

	for i, e := range entries {
		payload := e.Data
		switch e.Signature {
		case SHARING_PROTOCOL_INDICATOR:
			if ok, skip := HasSharingProtocol(entries[i:]); ok {
				rr.SharingProtocol = true
				rr.SkipBytes = skip
			}
			continue
		case EXTENSION_REFERENCE:
			if id, ok := ExtensionIdentifier(e); ok {
				rr.ExtensionIDs = append(rr.ExtensionIDs, id)
			}
			continue
		}

		switch RockRidgeEntryType(e.Signature) {
		case POSIX_FILE_PERMS:
			if len(payload) >= px_short {
				rr.Mode = bothEndian32(payload[0:8])
				rr.Links = bothEndian32(payload[8:16])
				rr.UID = bothEndian32(payload[16:24])
				rr.GID = bothEndian32(payload[24:32])
				if len(payload) >= px_long {
					rr.Serial = bothEndian32(payload[32:40])
				}
			}
		case POSIX_DEVICE_NUM:
			if len(payload) >= 16 {
				rr.Major = bothEndian32(payload[0:8])
				rr.Minor = bothEndian32(payload[8:16])
			}
		case ALTERNATE_NAME:
			if len(payload) < 1 {
				continue
			}
			flags := payload[0]
			rr.NameIsCurrent = rr.NameIsCurrent || flags&NM_CURRENT != 0
			rr.NameIsParent = rr.NameIsParent || flags&NM_PARENT != 0
			name.Write(payload[1:])
			nameSeen = true
		case SYMBOLIC_LINK:
			if len(payload) < 1 {
				continue
			}
			linkSeen = true
			for off := 1; off+2 <= len(payload); {
				cflags := payload[off]
				clen := int(payload[off+1])
				if off+2+clen > len(payload) {
					break
				}
				content := string(payload[off+2 : off+2+clen])
				off += 2 + clen

				var component string
				switch {
				case cflags&SL_CURRENT != 0:
					component = "."
				case cflags&SL_PARENT != 0:
					component = ".."
				case cflags&SL_ROOT != 0:
					if len(link) == 0 && !pendingOpen {
						linkRoot = true
					}
					continue
				default:
					component = content
				}
				pending.WriteString(component)
				pendingOpen = true
				if cflags&SL_CONTINUE == 0 {
					link = append(link, pending.String())
					pending.Reset()
					pendingOpen = false
				}
			}
		case CHILD_LINK:
			if len(payload) >= 8 {
				rr.ChildLinkLBA = bothEndian32(payload[0:8])
			}
		case PARENT_LINK:
			if len(payload) >= 8 {
				rr.ParentLinkLBA = bothEndian32(payload[0:8])
			}
		case RELOCATED_DIR:
			rr.IsRelocated = true
		case TIME_STAMPS:
			parseTimestamps(rr, payload)
		case ROCK_RIDGE:
			if len(payload) >= 1 {
				flags := payload[0]
				rr.RRFlags = &flags
			}
		}
	}

	if nameSeen && !rr.NameIsCurrent && !rr.NameIsParent {
		s := name.String()
		rr.AlternateName = &s
	}
	if linkSeen {
		if pendingOpen {
			link = append(link, pending.String())
		}
		target := strings.Join(link, "/")
		if linkRoot {
			target = "/" + target
		}
		rr.SymlinkTarget = &target
	}
	return rr
}

func bothEndian32(b []byte) *uint32 {
	v := binary.LittleEndian.Uint32(b[0:4])
	return &v
}

func parseTimestamps(rr *RockRidgeExtensions, payload []byte) {
	if len(payload) < 1 {
		return
	}
	flags := payload[0]
	size := 7
	if flags&TF_LONG_FORM != 0 {
		size = 17
	}
	off := 1
	for bit := byte(TF_CREATION); bit <= TF_EFFECTIVE; bit <<= 1 {
		if flags&bit == 0 {
			continue
		}
		if off+size > len(payload) {
			return
		}
		var t time.Time
		var err error
		if size == 7 {
			t, err = encoding.UnmarshalRecordingDateTime([7]byte(payload[off : off+7]))
		} else {
			t, err = encoding.UnmarshalDateTime([17]byte(payload[off : off+17]))
		}
		off += size
		if err != nil || t.IsZero() {
			continue
		}
		switch bit {
		case TF_CREATION:
			rr.CreationTime = &t
		case TF_MODIFY:
			rr.ModificationTime = &t
		case TF_ACCESS:
			rr.AccessTime = &t
		}
	}
}

// NewRockRidgeReferenceEntry returns the ER entry announcing RRIP 1.10 on the root directory.
func NewRockRidgeReferenceEntry() SystemUseEntry {
	return NewExtensionsReferenceEntry(ROCK_RIDGE_VERSION, consts.ROCK_RIDGE_ID, consts.ROCK_RIDGE_DESCRIPTOR, "")
}

// NewPosixEntry returns a PX entry without the optional serial number field.
func NewPosixEntry(mode, links, uid, gid uint32) SystemUseEntry {
	data := make([]byte, 0, px_short)
	for _, v := range []uint32{mode, links, uid, gid} {
		b := encoding.MarshalBothByteOrders32(v)
		data = append(data, b[:]...)
	}
	return SystemUseEntry{Signature: SystemUseEntryType(POSIX_FILE_PERMS), Version: ROCK_RIDGE_VERSION, Data: data}
}

// PosixMode returns the PX mode written for a node of the given kind and permission bits.
func PosixMode(isDir, isSymlink bool, perm os.FileMode) uint32 {
	switch {
	case isSymlink:
		return S_IFLNK | 0777
	case isDir:
		if perm&0777 == 0 {
			perm = 0755
		}
		return S_IFDIR | uint32(perm&0777)
	default:
		if perm&0777 == 0 {
			perm = 0644
		}
		return S_IFREG | uint32(perm&0777)
	}
}

// NewTimestampEntry returns a TF entry recording the modification and access times in the 7-byte form.
func NewTimestampEntry(t time.Time) (SystemUseEntry, error) {
	stamp, err := encoding.MarshalRecordingDateTime(t)
	if err != nil {
		return SystemUseEntry{}, fmt.Errorf("failed to encode TF timestamp: %w", err)
	}
	data := []byte{TF_MODIFY | TF_ACCESS}
	data = append(data, stamp[:]...)
	data = append(data, stamp[:]...)
	return SystemUseEntry{Signature: SystemUseEntryType(TIME_STAMPS), Version: ROCK_RIDGE_VERSION, Data: data}, nil
}

// NewNameEntries returns the NM entries holding name, split so that no entry exceeds the one byte length field.
func NewNameEntries(name string) []SystemUseEntry {
	const maxChunk = 255 - SUSP_HEADER_SIZE - 1
	var out []SystemUseEntry
	for {
		chunk := name
		flags := byte(0)
		if len(chunk) > maxChunk {
			chunk = chunk[:maxChunk]
			flags = NM_CONTINUE
		}
		data := append([]byte{flags}, chunk...)
		out = append(out, SystemUseEntry{Signature: SystemUseEntryType(ALTERNATE_NAME), Version: ROCK_RIDGE_VERSION, Data: data})
		name = name[len(chunk):]
		if name == "" {
			return out
		}
	}
}

// NewSymlinkEntries returns the SL entries describing target. Component records are packed into as few entries as
// the one byte length field allows; every entry but the last carries the continue flag. Components longer than a
// single record are split with the component continue flag.
func NewSymlinkEntries(target string) []SystemUseEntry {
	const maxData = 255 - SUSP_HEADER_SIZE
	const maxContent = maxData - 1 - 2

	var components [][]byte
	if strings.HasPrefix(target, "/") {
		components = append(components, []byte{SL_ROOT, 0})
		target = strings.TrimLeft(target, "/")
	}
	for _, part := range strings.Split(target, "/") {
		switch part {
		case "":
		case ".":
			components = append(components, []byte{SL_CURRENT, 0})
		case "..":
			components = append(components, []byte{SL_PARENT, 0})
		default:
			for len(part) > maxContent {
				components = append(components, append([]byte{SL_CONTINUE, maxContent}, part[:maxContent]...))
				part = part[maxContent:]
			}
			components = append(components, append([]byte{0, byte(len(part))}, part...))
		}
	}

	var out []SystemUseEntry
	data := []byte{0}
	for _, c := range components {
		if len(data)+len(c) > maxData {
			data[0] = SL_CONTINUE
			out = append(out, SystemUseEntry{Signature: SystemUseEntryType(SYMBOLIC_LINK), Version: ROCK_RIDGE_VERSION, Data: data})
			data = []byte{0}
		}
		data = append(data, c...)
	}
	return append(out, SystemUseEntry{Signature: SystemUseEntryType(SYMBOLIC_LINK), Version: ROCK_RIDGE_VERSION, Data: data})
}

// TruncateName shortens a single NM entry so that it occupies at most size bytes without splitting a UTF-8 sequence.
// The result never carries the continue flag. ok is false when not even an empty name fits.
func TruncateName(e SystemUseEntry, size int) (SystemUseEntry, bool) {
	if size < SUSP_HEADER_SIZE+1 {
		return e, false
	}
	n := len(e.Data)
	if e.Length() > size {
		n = size - SUSP_HEADER_SIZE
	}
	data := append([]byte(nil), e.Data[:n]...)
	for len(data) > 1 && !utf8.Valid(data[1:]) {
		data = data[:len(data)-1]
	}
	data[0] &^= NM_CONTINUE
	return SystemUseEntry{Signature: e.Signature, Version: e.Version, Data: data}, true
}
