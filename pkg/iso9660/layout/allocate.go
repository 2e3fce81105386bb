package layout

import (
	"fmt"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/boot"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/descriptor"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/directory"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/pathtable"
)

// Allocation is a request placed at LBA.
type Allocation struct {
	Request
	LBA uint32
}

// PathTableExtent locates the two path tables of a hierarchy.
type PathTableExtent struct {
	L    uint32
	M    uint32
	Size uint32
}

// Layout is the second phase: every request placed on the volume.
type Layout struct {
	Allocations   []Allocation
	DescriptorLBA uint32
	CatalogLBA    uint32
	HasCatalog    bool
	PathTables    map[directory.Hierarchy]PathTableExtent
	DirExtent     map[directory.Hierarchy]map[filesystem.NodeID]uint32
	DirLength     map[directory.Hierarchy]map[filesystem.NodeID]uint32
	FileExtent    map[filesystem.NodeID]uint32
	VolumeBlocks  uint32

	plan *Plan
}

// Allocate walks the requests with a running cursor, starting at block 0.
func Allocate(p *Plan) (*Layout, error) {
	l := &Layout{
		PathTables: make(map[directory.Hierarchy]PathTableExtent),
		DirExtent:  make(map[directory.Hierarchy]map[filesystem.NodeID]uint32),
		DirLength:  make(map[directory.Hierarchy]map[filesystem.NodeID]uint32),
		FileExtent: make(map[filesystem.NodeID]uint32),
		plan:       p,
	}
	for _, h := range p.hierarchies {
		l.DirExtent[h] = make(map[filesystem.NodeID]uint32)
		l.DirLength[h] = make(map[filesystem.NodeID]uint32)
	}

	var cursor uint64
	for _, r := range p.Requests {
		lba := uint32(cursor)
		l.Allocations = append(l.Allocations, Allocation{Request: r, LBA: lba})

		switch r.Kind {
		case Descriptor:
			l.DescriptorLBA = lba
		case BootCatalog:
			l.CatalogLBA, l.HasCatalog = lba, true
		case PathTableL:
			pt := l.PathTables[r.Hierarchy]
			pt.L, pt.Size = lba, p.tableSize[r.Hierarchy]
			l.PathTables[r.Hierarchy] = pt
		case PathTableM:
			pt := l.PathTables[r.Hierarchy]
			pt.M = lba
			l.PathTables[r.Hierarchy] = pt
		case Directory:
			l.DirExtent[r.Hierarchy][r.Node] = lba
			l.DirLength[r.Hierarchy][r.Node] = (r.Blocks - r.Continuation) * consts.ISO9660_SECTOR_SIZE
		case FilePayload:
			l.FileExtent[r.Node] = lba
		}

		cursor += uint64(r.Blocks)
		if cursor > 0xFFFFFFFF {
			return nil, fmt.Errorf("volume exceeds %d blocks", uint32(0xFFFFFFFF))
		}
	}
	l.VolumeBlocks = uint32(cursor)

	p.opts.Logger.Debug("Layout allocated",
		"blocks", l.VolumeBlocks,
		"requests", len(l.Allocations),
		"files", len(l.FileExtent),
		"directories", len(l.DirExtent[directory.Plain]),
		"joliet", p.opts.Joliet,
		"bootCatalog", l.HasCatalog)
	return l, nil
}

// Tree returns the tree the layout was planned for.
func (l *Layout) Tree() *filesystem.Tree {
	return l.plan.tree
}

// Hierarchies lists the hierarchies recorded on the volume, plain first.
func (l *Layout) Hierarchies() []directory.Hierarchy {
	return l.plan.hierarchies
}

// ShortName returns the level 1 identifier chosen for a node, without version suffix.
func (l *Layout) ShortName(id filesystem.NodeID) string {
	return l.plan.shortNames[id]
}

func (l *Layout) resolve(h directory.Hierarchy) resolver {
	return func(id filesystem.NodeID, isDir bool) (uint32, uint32) {
		if isDir {
			return l.DirExtent[h][id], l.DirLength[h][id]
		}
		n := l.plan.tree.Node(id)
		return l.FileExtent[id], uint32(n.Size)
	}
}

// DirectoryRecords returns the record blocks of directory id in hierarchy h, padded to the recorded length and
// followed by the blocks holding its continuation areas.
func (l *Layout) DirectoryRecords(h directory.Hierarchy, id filesystem.NodeID) ([]byte, error) {
	size, ok := l.DirLength[h][id]
	if !ok {
		return nil, fmt.Errorf("directory %s has no %s extent", l.plan.tree.Path(id), h)
	}
	buf, area, err := l.plan.serialize(id, h, l.resolve(h))
	if err != nil {
		return nil, err
	}
	if uint32(len(buf)) > size {
		return nil, fmt.Errorf("directory %s grew from %d to %d bytes", l.plan.tree.Path(id), size, len(buf))
	}
	var areaSize uint32
	if len(area) > 0 {
		areaSize = blocks(int64(len(area))) * consts.ISO9660_SECTOR_SIZE
	}
	out := make([]byte, size+areaSize)
	copy(out, buf)
	copy(out[size:], area)
	return out, nil
}

// RootRecord returns the 34-byte root directory record stored in the volume descriptor of hierarchy h.
func (l *Layout) RootRecord(h directory.Hierarchy) ([consts.ISO9660_ROOT_RECORD_SIZE]byte, error) {
	var out [consts.ISO9660_ROOT_RECORD_SIZE]byte
	root := l.plan.tree.Node(l.plan.tree.Root)
	extent, length := l.resolve(h)(root.ID, true)
	rec, err := directory.Encode(l.plan.source(root), directory.EncodeOptions{
		Role:       directory.RoleSelf,
		Hierarchy:  h,
		Extent:     extent,
		DataLength: length,
		Fallback:   l.plan.opts.Timestamp,
	})
	if err != nil {
		return out, err
	}
	if len(rec) != len(out) {
		return out, fmt.Errorf("root record is %d bytes", len(rec))
	}
	copy(out[:], rec)
	return out, nil
}

// PathTableData returns the type L and type M path tables of hierarchy h.
func (l *Layout) PathTableData(h directory.Hierarchy) (lt, mt []byte, err error) {
	extents := make(map[int]uint32, len(l.DirExtent[h]))
	for id, lba := range l.DirExtent[h] {
		extents[int(id)] = lba
	}
	return pathtable.Generate(l.plan.dirs[h], extents)
}

// BootEntries returns the catalog entries for the configured boot images.
func (l *Layout) BootEntries() []boot.Entry {
	var out []boot.Entry
	for _, img := range l.plan.opts.Boot {
		n := l.plan.tree.Node(img.Node)
		out = append(out, boot.Entry{
			Platform:    img.Platform,
			Emulation:   img.Emulation,
			LoadSegment: img.LoadSegment,
			Bootable:    true,
			SectorCount: boot.SectorCount(img.Platform, img.Emulation, n.Size),
			ImageLBA:    l.FileExtent[img.Node],
		})
	}
	return out
}

// BootCatalog returns the boot catalog block.
func (l *Layout) BootCatalog() ([consts.ISO9660_SECTOR_SIZE]byte, error) {
	return boot.Build(l.BootEntries())
}

// Descriptors returns the volume descriptor set in write order.
func (l *Layout) Descriptors() ([][consts.ISO9660_SECTOR_SIZE]byte, error) {
	hierarchy := func(h directory.Hierarchy) (descriptor.Hierarchy, error) {
		root, err := l.RootRecord(h)
		pt := l.PathTables[h]
		return descriptor.Hierarchy{PathTableSize: pt.Size, LPathTable: pt.L, MPathTable: pt.M, RootRecord: root}, err
	}

	params := descriptor.AssembleParams{
		SystemID:     l.plan.opts.SystemID,
		VolumeID:     l.plan.opts.VolumeID,
		VolumeBlocks: l.VolumeBlocks,
		Timestamp:    l.plan.opts.Timestamp,
	}
	var err error
	if params.Primary, err = hierarchy(directory.Plain); err != nil {
		return nil, err
	}
	if l.plan.opts.Joliet {
		j, err := hierarchy(directory.Joliet)
		if err != nil {
			return nil, err
		}
		params.Joliet = &j
	}
	if l.HasCatalog {
		lba := l.CatalogLBA
		params.CatalogLBA = &lba
	}
	return descriptor.AssembleVolume(params)
}
