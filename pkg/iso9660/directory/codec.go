package directory

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/encoding"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/extensions"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/validation"
)

// Role selects which identifier a record carries inside its directory.
type Role int

const (
	RoleChild Role = iota
	RoleSelf
	RoleParent
)

// Hierarchy selects the naming convention of a directory tree.
type Hierarchy int

const (
	Plain Hierarchy = iota
	Joliet
)

func (h Hierarchy) String() string {
	if h == Joliet {
		return "joliet"
	}
	return "plain"
}

// Record is the decoded view of a directory record.
type Record struct {
	Extent       uint32
	Length       uint32
	RecordLength int
	IsDirectory  bool
	IsHidden     bool
	// XARLength is the number of blocks an Extended Attribute Record occupies ahead of the file data.
	XARLength uint8
	// Date is the zero time when the record leaves it unspecified.
	Date       time.Time
	Identifier string
	// RawIdentifier keeps the version suffix and trailing '.' that Identifier drops.
	RawIdentifier string
	SystemUse     []byte
	// RockRidge is filled in by callers that resolve the system use area, which may involve continuation areas.
	RockRidge *extensions.RockRidgeExtensions
}

// IsSelf reports whether the record is the "." entry of its directory.
func (r *Record) IsSelf() bool {
	return r.Identifier == "\x00"
}

// IsParent reports whether the record is the ".." entry of its directory.
func (r *Record) IsParent() bool {
	return r.Identifier == "\x01"
}

// IsSpecial checks for "." or ".."
func (r *Record) IsSpecial() bool {
	return r.IsSelf() || r.IsParent()
}

// BestName returns the Rock Ridge name when one was decoded and allowed, otherwise the on-disk identifier.
func (r *Record) BestName(rockRidge bool) string {
	if r.IsSelf() {
		return "."
	}
	if r.IsParent() {
		return ".."
	}
	if rockRidge && r.RockRidge != nil && r.RockRidge.AlternateName != nil && *r.RockRidge.AlternateName != "" {
		return *r.RockRidge.AlternateName
	}
	return r.Identifier
}

// ModTime prefers the Rock Ridge modification time over the record date.
func (r *Record) ModTime(rockRidge bool) time.Time {
	if rockRidge && r.RockRidge != nil && r.RockRidge.ModificationTime != nil {
		return *r.RockRidge.ModificationTime
	}
	return r.Date
}

// Decode decodes one directory record. For the Joliet hierarchy identifiers are UCS-2 except for the single byte
// self and parent identifiers. Version suffixes and a trailing '.' are removed from file identifiers.
func Decode(b []byte, joliet bool) (*Record, error) {
	var dr DirectoryRecord
	if err := dr.Unmarshal(b); err != nil {
		return nil, err
	}

	raw := dr.FileIdentifier
	var id string
	switch {
	case len(raw) == 1 && (raw[0] == 0x00 || raw[0] == 0x01):
		id = string(raw)
	case joliet:
		id = encoding.DecodeUCS2BigEndian(raw)
	default:
		id = string(raw)
	}
	rawID := id
	if !dr.FileFlags.Directory && len(raw) > 1 {
		id = stripVersion(id)
	}

	return &Record{
		Extent:        dr.LocationOfExtent,
		Length:        dr.DataLength,
		RecordLength:  int(dr.LengthOfDirectoryRecord),
		IsDirectory:   dr.FileFlags.Directory,
		IsHidden:      dr.FileFlags.Hidden,
		XARLength:     dr.ExtendedAttributeRecordLength,
		Date:          dr.RecordingDateAndTime,
		Identifier:    id,
		RawIdentifier: rawID,
		SystemUse:     dr.SystemUse,
	}, nil
}

func stripVersion(id string) string {
	if i := strings.LastIndex(id, consts.ISO9660_SEPARATOR_2); i >= 0 {
		id = id[:i]
	}
	if strings.HasSuffix(id, consts.ISO9660_SEPARATOR_1) && len(id) > 1 {
		id = id[:len(id)-1]
	}
	return id
}

// Source describes the node a record is encoded for.
type Source struct {
	// Name is the true name, used for Joliet and Rock Ridge.
	Name string
	// ShortName is the derived d-character name used by the plain hierarchy, without version suffix.
	ShortName     string
	IsDirectory   bool
	IsHidden      bool
	ModTime       time.Time
	Mode          os.FileMode
	SymlinkTarget string
	// JolietID overrides the identifier derived from Name in the Joliet hierarchy.
	JolietID []byte
}

type EncodeOptions struct {
	Role       Role
	Hierarchy  Hierarchy
	Extent     uint32
	DataLength uint32
	// RockRidge adds SUSP entries to plain hierarchy records.
	RockRidge bool
	// Root marks the records describing the root directory; its self record carries SP and ER.
	Root bool
	// Fallback is used as the record date when the source has no modification time.
	Fallback time.Time
	// Continuation locates the area that receives the Rock Ridge entries the record has no room for. Without it an
	// alternate name is shortened to fit and a symbolic link that does not fit is an error.
	Continuation *extensions.Continuation
}

// Encode produces an even length directory record for src. It fails when the record would need a continuation area.
func Encode(src Source, opts EncodeOptions) ([]byte, error) {
	rec, area, err := EncodeWithContinuation(src, opts)
	if err != nil {
		return nil, err
	}
	if len(area) > 0 {
		return nil, fmt.Errorf("record for %q needs a %d byte continuation area", src.Name, len(area))
	}
	return rec, nil
}

// EncodeWithContinuation produces an even length directory record for src together with the continuation area its
// CE entry points at, if any. The area is never longer than a block; placing it so that it does not cross a block
// boundary is up to the caller.
func EncodeWithContinuation(src Source, opts EncodeOptions) (rec, area []byte, err error) {
	date := src.ModTime
	if !recordable(date) {
		date = opts.Fallback
	}
	if !recordable(date) {
		date = time.Time{}
	}

	dr := DirectoryRecord{
		LocationOfExtent:     opts.Extent,
		DataLength:           opts.DataLength,
		RecordingDateAndTime: date,
		FileFlags:            FileFlags{Directory: src.IsDirectory, Hidden: src.IsHidden && opts.Role == RoleChild},
		VolumeSequenceNumber: 1,
		FileIdentifier:       identifier(src, opts),
	}

	if opts.RockRidge && opts.Hierarchy == Plain {
		base := consts.ISO9660_DIRECTORY_RECORD_FIXED_SIZE + len(dr.FileIdentifier)
		if len(dr.FileIdentifier)%2 == 0 {
			base++
		}
		// The record length must stay even, so the last usable byte is 254.
		su, ce, err := rockRidgeArea(src, opts, date, consts.ISO9660_DIRECTORY_RECORD_MAX_SIZE-1-base)
		if err != nil {
			return nil, nil, err
		}
		dr.SystemUse, area = su, ce
	}
	rec, err = dr.Marshal()
	return rec, area, err
}

// recordable reports whether t fits the 7-byte recording date.
func recordable(t time.Time) bool {
	return !t.IsZero() && t.Year() > 1900 && t.Year() < 2156
}

func identifier(src Source, opts EncodeOptions) []byte {
	switch opts.Role {
	case RoleSelf:
		return []byte{0x00}
	case RoleParent:
		return []byte{0x01}
	}
	if opts.Hierarchy == Joliet {
		if src.JolietID != nil {
			return src.JolietID
		}
		return JolietIdentifier(src.Name)
	}
	if src.IsDirectory {
		return []byte(src.ShortName)
	}
	return []byte(src.ShortName + consts.ISO9660_FILE_VERSION_SUFFIX)
}

// JolietIdentifier returns the UCS-2 identifier recorded for name in the Joliet hierarchy, limited to 64 characters.
func JolietIdentifier(name string) []byte {
	id := encoding.EncodeUCS2BigEndian(validation.JolietName(name))
	if len(id) > 2*consts.JOLIET_MAX_NAME_LENGTH {
		id = id[:2*consts.JOLIET_MAX_NAME_LENGTH]
		// Never end on the high half of a surrogate pair.
		if hi := id[len(id)-2]; hi >= 0xD8 && hi <= 0xDB {
			id = id[:len(id)-2]
		}
	}
	return id
}

// UniqueJolietIdentifiers returns the Joliet identifiers of a set of siblings. Names are processed in the given
// order; an identifier already taken, which happens when names only differ past the length limit, gets its tail
// replaced with "_N" using the smallest free N.
func UniqueJolietIdentifiers(names []string) [][]byte {
	out := make([][]byte, len(names))
	taken := make(map[string]bool, len(names))
	for i, name := range names {
		id := JolietIdentifier(name)
		for n := 1; taken[string(id)]; n++ {
			tail := encoding.EncodeUCS2BigEndian("_" + strconv.Itoa(n))
			keep := JolietIdentifier(name)
			if limit := 2*consts.JOLIET_MAX_NAME_LENGTH - len(tail); len(keep) > limit {
				keep = keep[:limit]
				if hi := keep[len(keep)-2]; hi >= 0xD8 && hi <= 0xDB {
					keep = keep[:len(keep)-2]
				}
			}
			id = append(append([]byte(nil), keep...), tail...)
		}
		taken[string(id)] = true
		out[i] = id
	}
	return out
}

func rockRidgeArea(src Source, opts EncodeOptions, date time.Time, avail int) (su, area []byte, err error) {
	isLink := src.SymlinkTarget != "" && opts.Role == RoleChild
	px := extensions.NewPosixEntry(extensions.PosixMode(src.IsDirectory, isLink, src.Mode), links(src), 0, 0)
	tf, err := extensions.NewTimestampEntry(date)
	if err != nil {
		return nil, nil, err
	}

	var head, names, symlink []extensions.SystemUseEntry
	if opts.Root && opts.Role == RoleSelf {
		head = append(head, extensions.NewSharingProtocolEntry(), extensions.NewRockRidgeReferenceEntry())
	}
	if opts.Role == RoleChild && src.ShortName != src.Name && src.Name != "" {
		names = extensions.NewNameEntries(src.Name)
	}
	if isLink {
		symlink = extensions.NewSymlinkEntries(src.SymlinkTarget)
	}

	all := append(append(append(append([]extensions.SystemUseEntry(nil), head...), names...), symlink...), px, tf)
	if size(all) <= avail {
		return marshal(all), nil, nil
	}
	if opts.Continuation != nil {
		return continued(all, avail, *opts.Continuation)
	}

	// Without a continuation area the name is shortened and the remaining entries kept when they fit.
	var out []byte
	add := func(e extensions.SystemUseEntry) bool {
		if len(out)+e.Length() > avail {
			return false
		}
		out = append(out, e.Marshal()...)
		return true
	}
	for _, e := range head {
		add(e)
	}
	if len(names) > 0 {
		room := avail - len(out) - px.Length() - tf.Length() - size(symlink)
		if names[0].Length() > room {
			room = avail - len(out) - size(symlink)
		}
		if nm, ok := extensions.TruncateName(names[0], room); ok {
			add(nm)
		}
	}
	for _, e := range symlink {
		if !add(e) {
			return nil, nil, fmt.Errorf("symbolic link target of %q does not fit without a continuation area", src.Name)
		}
	}
	add(px)
	add(tf)
	return out, nil, nil
}

// continued keeps the leading entries that fit in the record next to a CE entry and moves the rest to the area.
func continued(all []extensions.SystemUseEntry, avail int, c extensions.Continuation) (su, area []byte, err error) {
	i := 0
	for used := 0; i < len(all) && used+all[i].Length()+extensions.CE_ENTRY_SIZE <= avail; i++ {
		used += all[i].Length()
	}
	area = marshal(all[i:])
	if len(area) > consts.ISO9660_SECTOR_SIZE {
		return nil, nil, fmt.Errorf("continuation area of %d bytes does not fit a block", len(area))
	}
	c.Length = uint32(len(area))
	su = append(marshal(all[:i]), extensions.NewContinuationEntry(c).Marshal()...)
	return su, area, nil
}

func size(entries []extensions.SystemUseEntry) int {
	n := 0
	for _, e := range entries {
		n += e.Length()
	}
	return n
}

func marshal(entries []extensions.SystemUseEntry) []byte {
	var out []byte
	for _, e := range entries {
		out = append(out, e.Marshal()...)
	}
	return out
}

func links(src Source) uint32 {
	if src.IsDirectory {
		return 2
	}
	return 1
}
