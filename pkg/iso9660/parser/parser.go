package parser

import (
	"io"
	"time"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/boot"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/descriptor"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/directory"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/extensions"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/xattr"
	"github.com/bgrewell/iso-edit-kit/pkg/isoerr"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
	"github.com/bgrewell/iso-edit-kit/pkg/option"
	"github.com/bgrewell/iso-edit-kit/pkg/udf"
)

// Hierarchy names the directory hierarchy a tree was read from.
type Hierarchy string

const (
	HierarchyRockRidge Hierarchy = "rockridge"
	HierarchyJoliet    Hierarchy = "joliet"
	HierarchyPlain     Hierarchy = "plain"
)

// Info describes the image a tree was built from.
type Info struct {
	SystemID     string
	VolumeID     string
	VolumeBlocks uint32
	Created      time.Time
	Modified     time.Time
	HasJoliet    bool
	HasRockRidge bool
	// Hierarchy is the hierarchy the tree was read from.
	Hierarchy Hierarchy
	// Boot is the decoded El Torito catalog, nil when the image is not bootable or El Torito is disabled.
	Boot *boot.Catalog
	UDF  *udf.Recognition
	// Volumes holds the primary descriptor followed by every supplementary descriptor.
	Volumes []*descriptor.Volume
	// Partitions are reported as found; they are not carried over when the image is saved.
	Partitions []*descriptor.VolumePartitionDescriptor
}

func NewTreeBuilder(reader io.ReaderAt, options *option.OpenOptions) *TreeBuilder {
	if options == nil {
		options = option.DefaultOpenOptions()
	}
	return &TreeBuilder{
		reader:  reader,
		options: options,
		logger:  logging.OrDefault(options.Logger),
	}
}

// TreeBuilder reads one directory hierarchy of an image into a filesystem.Tree.
type TreeBuilder struct {
	reader  io.ReaderAt
	options *option.OpenOptions
	logger  *logging.Logger

	tree      *filesystem.Tree
	joliet    bool
	rockRidge bool
	skip      int
	visited   map[uint32]bool
}

// Build is a shorthand for NewTreeBuilder(r, opts).Build(set).
func Build(r io.ReaderAt, set *descriptor.VolumeDescriptorSet, opts *option.OpenOptions) (*filesystem.Tree, *Info, error) {
	return NewTreeBuilder(r, opts).Build(set)
}

// Build picks a hierarchy and reads it. Rock Ridge on the primary hierarchy wins when enabled, then the Joliet
// hierarchy when preferred, then the plain primary hierarchy. Undecodable records are skipped; only a root record
// that cannot be decoded is an error.
func (tb *TreeBuilder) Build(set *descriptor.VolumeDescriptorSet) (*filesystem.Tree, *Info, error) {
	if set == nil || set.Primary == nil {
		return nil, nil, isoerr.NewFormatError("volume descriptor set has no primary volume descriptor")
	}
	pvd := set.Primary
	info := &Info{
		SystemID:     pvd.SystemIdentifier,
		VolumeID:     pvd.VolumeIdentifier,
		VolumeBlocks: pvd.VolumeSpaceSize,
		Created:      pvd.VolumeCreationDateAndTime,
		Modified:     pvd.VolumeModificationDateAndTime,
		HasJoliet:    set.Joliet != nil,
		Volumes:      []*descriptor.Volume{pvd.Volume()},
		Partitions:   set.Partitions,
	}
	for _, svd := range set.Supplementary {
		info.Volumes = append(info.Volumes, svd.Volume())
	}

	primaryRoot, err := directory.Decode(pvd.RootDirectoryRecord[:], false)
	if err != nil {
		return nil, nil, isoerr.NewFormatError("invalid root directory record: %v", err)
	}
	skip, hasRR := tb.detectRockRidge(primaryRoot)
	info.HasRockRidge = hasRR

	root := primaryRoot
	switch {
	case hasRR && tb.options.RockRidgeEnabled:
		info.Hierarchy = HierarchyRockRidge
		tb.rockRidge, tb.skip = true, skip
	case set.Joliet != nil && tb.options.PreferJoliet:
		jv := set.Joliet
		jroot, err := directory.Decode(jv.RootDirectoryRecord[:], true)
		if err != nil {
			tb.logger.Debug("Ignoring Joliet hierarchy with invalid root record", "error", err)
			info.Hierarchy = HierarchyPlain
			break
		}
		info.Hierarchy = HierarchyJoliet
		info.SystemID, info.VolumeID = jv.SystemIdentifier, jv.VolumeIdentifier
		tb.joliet = true
		root = jroot
	default:
		info.Hierarchy = HierarchyPlain
	}
	tb.logger.Debug("Reading directory hierarchy", "hierarchy", string(info.Hierarchy), "rootExtent", root.Extent)

	tb.tree = filesystem.NewTree(root.Date)
	tb.visited = make(map[uint32]bool)
	tb.readDirectory(tb.tree.Root, root.Extent, root.Length, 0)

	if tb.options.ElToritoEnabled && set.Boot != nil && set.Boot.IsElTorito() {
		cat, err := boot.ReadCatalog(tb.reader, set.Boot.CatalogPointer(), tb.logger)
		if err != nil {
			tb.logger.Debug("Ignoring unreadable boot catalog", "lba", set.Boot.CatalogPointer(), "error", err)
		} else {
			info.Boot = cat
		}
	}
	info.UDF, _ = udf.DetectVRS(tb.reader, set.TerminatorLBA+1, tb.logger)

	return tb.tree, info, nil
}

// detectRockRidge looks for SUSP and Rock Ridge entries on the root's self record and its first child.
func (tb *TreeBuilder) detectRockRidge(root *directory.Record) (skip int, ok bool) {
	records := tb.readRecords(root.Extent, consts.ISO9660_SECTOR_SIZE, false)
	if len(records) == 0 || !records[0].IsSelf() {
		return 0, false
	}
	entries := extensions.ReadSystemUse(records[0].SystemUse, tb.reader, tb.logger)
	sp, skip := extensions.HasSharingProtocol(entries)
	if sp || extensions.ParseRockRidge(entries).HasRockRidge() {
		return skip, true
	}
	for _, rec := range records[1:] {
		if rec.IsSpecial() {
			continue
		}
		return 0, tb.rockRidgeFor(rec, 0).HasRockRidge()
	}
	return 0, false
}

func (tb *TreeBuilder) rockRidgeFor(rec *directory.Record, skip int) *extensions.RockRidgeExtensions {
	su := rec.SystemUse
	if skip > len(su) {
		skip = len(su)
	}
	return extensions.ParseRockRidge(extensions.ReadSystemUse(su[skip:], tb.reader, tb.logger))
}

// readRecords decodes the records of a directory extent one block at a time. A zero length byte ends the block; a
// record that would cross the block boundary or cannot be decoded is skipped.
func (tb *TreeBuilder) readRecords(extent, length uint32, joliet bool) []*directory.Record {
	var out []*directory.Record
	buf := make([]byte, consts.ISO9660_SECTOR_SIZE)
	nBlocks := (int64(length) + consts.ISO9660_SECTOR_SIZE - 1) / consts.ISO9660_SECTOR_SIZE

	for blk := int64(0); blk < nBlocks; blk++ {
		lba := int64(extent) + blk
		if n, err := tb.reader.ReadAt(buf, lba*consts.ISO9660_SECTOR_SIZE); n < len(buf) {
			tb.logger.Debug("Directory block is not readable", "lba", lba, "error", err)
			break
		}
		for off := 0; off < len(buf); {
			size := int(buf[off])
			if size == 0 {
				break
			}
			if off+size > len(buf) {
				tb.logger.Debug("Directory record overflows its block", "lba", lba, "offset", off, "length", size)
				break
			}
			rec, err := directory.Decode(buf[off:off+size], joliet)
			if err != nil {
				tb.logger.Debug("Skipping malformed directory record", "lba", lba, "offset", off, "error", err)
			} else {
				out = append(out, rec)
			}
			off += size
		}
	}
	return out
}

func (tb *TreeBuilder) readDirectory(id filesystem.NodeID, extent, length uint32, depth int) {
	if depth >= tb.options.MaxDepth {
		tb.logger.Debug("Maximum directory depth reached", "path", tb.tree.Path(id), "depth", depth)
		return
	}
	if tb.visited[extent] {
		tb.logger.Debug("Directory extent already visited", "path", tb.tree.Path(id), "extent", extent)
		return
	}
	tb.visited[extent] = true
	tb.logger.Trace("Reading directory", "path", tb.tree.Path(id), "extent", extent, "length", length)

	for _, rec := range tb.readRecords(extent, length, tb.joliet) {
		if rec.IsSpecial() {
			continue
		}
		isDir, childExtent, childLength := rec.IsDirectory, rec.Extent, rec.Length

		if tb.rockRidge {
			rec.RockRidge = tb.rockRidgeFor(rec, tb.skip)
			if rec.RockRidge.IsRelocated {
				continue
			}
			if cl := rec.RockRidge.ChildLinkLBA; cl != nil {
				moved := tb.readRecords(*cl, consts.ISO9660_SECTOR_SIZE, false)
				if len(moved) == 0 || !moved[0].IsSelf() {
					tb.logger.Debug("Skipping unresolvable child link", "name", rec.Identifier, "lba", *cl)
					continue
				}
				isDir, childExtent, childLength = true, *cl, moved[0].Length
			}
		}

		name := rec.BestName(tb.rockRidge)
		if !tb.options.StripVersionInfo && name == rec.Identifier {
			name = rec.RawIdentifier
		}

		node := &filesystem.Node{
			Name:        name,
			IsDirectory: isDir,
			IsHidden:    rec.IsHidden,
			ModTime:     rec.ModTime(tb.rockRidge),
		}
		if rr := rec.RockRidge; rr != nil {
			if mode, ok := rr.FileMode(); ok {
				node.Mode = mode.Perm()
			}
			if rr.SymlinkTarget != nil {
				node.SymlinkTarget = *rr.SymlinkTarget
			}
		}
		if !isDir {
			dataExtent := rec.Extent
			if rec.XARLength > 0 {
				dataExtent += uint32(rec.XARLength)
				if xa := tb.readAttributes(rec.Extent); xa != nil && node.Mode == 0 {
					node.Mode = xa.Permissions.FileMode()
				}
			}
			node.Size = int64(rec.Length)
			node.Payload = filesystem.SourceImage{Extent: dataExtent, Size: int64(rec.Length)}
		}

		child, err := tb.tree.AddChild(id, node)
		if err != nil {
			tb.logger.Debug("Skipping directory entry", "parent", tb.tree.Path(id), "name", name, "error", err)
			continue
		}
		if isDir {
			tb.readDirectory(child, childExtent, childLength, depth+1)
		}
	}
}

// readAttributes decodes the Extended Attribute Record at lba, returning nil when it cannot be read.
func (tb *TreeBuilder) readAttributes(lba uint32) *xattr.Record {
	buf := make([]byte, xattr.RECORD_FIXED_SIZE)
	if _, err := tb.reader.ReadAt(buf, int64(lba)*consts.ISO9660_SECTOR_SIZE); err != nil {
		tb.logger.Debug("Failed to read extended attribute record", "lba", lba, "error", err)
		return nil
	}
	var xa xattr.Record
	if err := xa.Unmarshal(buf); err != nil {
		tb.logger.Debug("Ignoring invalid extended attribute record", "lba", lba, "error", err)
		return nil
	}
	return &xa
}
