package layout

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/boot"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/descriptor"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/directory"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/extensions"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/pathtable"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/validation"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
)

// Kind says what an allocation request reserves space for.
type Kind int

const (
	SystemArea Kind = iota
	Descriptor
	BootCatalog
	PathTableL
	PathTableM
	Directory
	FilePayload
)

func (k Kind) String() string {
	switch k {
	case SystemArea:
		return "System Area"
	case Descriptor:
		return "Volume Descriptor"
	case BootCatalog:
		return "Boot Catalog"
	case PathTableL:
		return "Path Table (L)"
	case PathTableM:
		return "Path Table (M)"
	case Directory:
		return "Directory Extent"
	case FilePayload:
		return "File Data"
	default:
		return "Unknown"
	}
}

// Request reserves Blocks whole blocks. Node and Hierarchy are only meaningful for the kinds that refer to them.
type Request struct {
	Kind      Kind
	Node      filesystem.NodeID
	Hierarchy directory.Hierarchy
	Blocks    uint32
	// Continuation is the number of trailing blocks of a directory request that hold SUSP continuation areas
	// rather than records.
	Continuation uint32
}

// BootImage names a file node referenced from the boot catalog.
type BootImage struct {
	Node        filesystem.NodeID
	Platform    boot.Platform
	Emulation   boot.Emulation
	LoadSegment uint16
}

type Options struct {
	SystemID  string
	VolumeID  string
	Joliet    bool
	RockRidge bool
	// Boot lists the images referenced from the boot catalog, default entry first.
	Boot []BootImage
	// Timestamp is recorded in the volume descriptors and for nodes without a modification time.
	Timestamp time.Time
	Logger    *logging.Logger
}

// Plan is the first phase of the layout: an ordered list of allocation requests together with everything needed to
// serialize the metadata once the requests have been placed.
type Plan struct {
	Requests []Request

	tree        *filesystem.Tree
	opts        Options
	hierarchies []directory.Hierarchy
	shortNames  map[filesystem.NodeID]string
	jolietIDs   map[filesystem.NodeID][]byte
	dirs        map[directory.Hierarchy][]pathtable.Dir
	tableSize   map[directory.Hierarchy]uint32
}

func blocks(size int64) uint32 {
	n := (size + consts.ISO9660_SECTOR_SIZE - 1) / consts.ISO9660_SECTOR_SIZE
	if n < 1 {
		n = 1
	}
	return uint32(n)
}

// NewPlan builds the allocation requests for tree. The fixed prefix holds the system area, the descriptor set, the
// boot catalog and the path tables. Each hierarchy then contributes its directories depth-first, subdirectories before
// the directory itself; file payloads are requested once, on the plain pass, and shared by the Joliet hierarchy.
func NewPlan(tree *filesystem.Tree, opts Options) (*Plan, error) {
	opts.Logger = logging.OrDefault(opts.Logger)
	p := &Plan{
		tree:        tree,
		opts:        opts,
		hierarchies: []directory.Hierarchy{directory.Plain},
		shortNames:  make(map[filesystem.NodeID]string),
		jolietIDs:   make(map[filesystem.NodeID][]byte),
		dirs:        make(map[directory.Hierarchy][]pathtable.Dir),
		tableSize:   make(map[directory.Hierarchy]uint32),
	}
	if opts.Joliet {
		p.hierarchies = append(p.hierarchies, directory.Joliet)
	}

	for _, img := range opts.Boot {
		n := tree.Node(img.Node)
		if n == nil || n.IsDirectory {
			return nil, fmt.Errorf("boot image node %d is not a file in the tree", img.Node)
		}
	}

	if err := tree.Walk(func(n *filesystem.Node, _ string) error {
		if !n.IsDirectory {
			if n.Size > 0xFFFFFFFF {
				return fmt.Errorf("%s is too large for a single extent", tree.Path(n.ID))
			}
			return nil
		}
		children := tree.Children(n.ID)
		names := make([]string, len(children))
		isDir := make([]bool, len(children))
		for i, c := range children {
			names[i], isDir[i] = c.Name, c.IsDirectory
		}
		for i, short := range validation.UniqueShortNames(names, isDir) {
			p.shortNames[children[i].ID] = short
		}
		if opts.Joliet {
			for i, id := range directory.UniqueJolietIdentifiers(names) {
				p.jolietIDs[children[i].ID] = id
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	p.add(Request{Kind: SystemArea, Blocks: consts.ISO9660_SYSTEM_AREA_SECTORS})
	p.add(Request{Kind: Descriptor, Blocks: uint32(descriptor.DescriptorCount(opts.Joliet, len(opts.Boot) > 0))})
	if len(opts.Boot) > 0 {
		p.add(Request{Kind: BootCatalog, Blocks: 1})
	}

	for _, h := range p.hierarchies {
		dirs, err := p.numberDirectories(h)
		if err != nil {
			return nil, err
		}
		p.dirs[h] = dirs
		p.tableSize[h] = uint32(pathtable.Size(dirs))
	}
	for _, h := range p.hierarchies {
		size := int64(p.tableSize[h])
		p.add(Request{Kind: PathTableL, Hierarchy: h, Blocks: blocks(size)})
		p.add(Request{Kind: PathTableM, Hierarchy: h, Blocks: blocks(size)})
	}

	for _, h := range p.hierarchies {
		if err := p.visit(tree.Root, h); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Plan) add(r Request) {
	p.Requests = append(p.Requests, r)
}

func (p *Plan) visit(id filesystem.NodeID, h directory.Hierarchy) error {
	children := p.tree.Children(id)
	for _, c := range children {
		if c.IsDirectory {
			if err := p.visit(c.ID, h); err != nil {
				return err
			}
		}
	}
	if h == directory.Plain {
		for _, c := range children {
			if !c.IsDirectory && !c.IsSymlink() {
				p.add(Request{Kind: FilePayload, Node: c.ID, Blocks: blocks(c.Size)})
			}
		}
	}
	// Extents do not change record lengths, so the record set can be measured before anything is placed.
	records, area, err := p.serialize(id, h, func(filesystem.NodeID, bool) (uint32, uint32) { return 0, 0 })
	if err != nil {
		return err
	}
	var continuation uint32
	if len(area) > 0 {
		continuation = blocks(int64(len(area)))
	}
	p.add(Request{
		Kind:         Directory,
		Node:         id,
		Hierarchy:    h,
		Blocks:       blocks(int64(len(records))) + continuation,
		Continuation: continuation,
	})
	return nil
}

// identifier returns the bytes a node is recorded under in hierarchy h.
func (p *Plan) identifier(n *filesystem.Node, h directory.Hierarchy) []byte {
	if h == directory.Joliet {
		if id, ok := p.jolietIDs[n.ID]; ok {
			return id
		}
		return directory.JolietIdentifier(n.Name)
	}
	if n.IsDirectory {
		return []byte(p.shortNames[n.ID])
	}
	return []byte(p.shortNames[n.ID] + consts.ISO9660_FILE_VERSION_SUFFIX)
}

func (p *Plan) numberDirectories(h directory.Hierarchy) ([]pathtable.Dir, error) {
	var dirs []pathtable.Dir
	var collect func(id filesystem.NodeID, path [][]byte)
	collect = func(id filesystem.NodeID, path [][]byte) {
		dirs = append(dirs, pathtable.Dir{Key: int(id), Path: path})
		for _, c := range p.tree.Children(id) {
			if c.IsDirectory {
				child := append(append([][]byte(nil), path...), p.identifier(c, h))
				collect(c.ID, child)
			}
		}
	}
	collect(p.tree.Root, nil)
	return pathtable.Number(dirs)
}

func (p *Plan) source(n *filesystem.Node) directory.Source {
	return directory.Source{
		Name:          n.Name,
		ShortName:     p.shortNames[n.ID],
		IsDirectory:   n.IsDirectory,
		IsHidden:      n.IsHidden,
		ModTime:       n.ModTime,
		Mode:          n.Mode.Perm(),
		SymlinkTarget: n.SymlinkTarget,
		JolietID:      p.jolietIDs[n.ID],
	}
}

// resolver returns the extent and data length recorded for a node.
type resolver func(id filesystem.NodeID, isDir bool) (extent, length uint32)

// serialize encodes the record set of directory id: self, parent, then children ordered by recorded identifier.
// Records never span a block boundary. Rock Ridge entries that do not fit a record go to continuation areas, which
// are packed into the blocks that follow the records without crossing a block boundary.
func (p *Plan) serialize(id filesystem.NodeID, h directory.Hierarchy, resolve resolver) (records, area []byte, err error) {
	extent, _ := resolve(id, true)
	// Record lengths do not depend on where the areas go, so a first pass fixes the number of record blocks.
	records, _, err = p.encodeRecords(id, h, resolve, 0)
	if err != nil {
		return nil, nil, err
	}
	return p.encodeRecords(id, h, resolve, extent+blocks(int64(len(records))))
}

func (p *Plan) encodeRecords(id filesystem.NodeID, h directory.Hierarchy, resolve resolver, areaLBA uint32) (buf, area []byte, err error) {
	dir := p.tree.Node(id)
	parent := p.tree.Node(dir.Parent)

	base := directory.EncodeOptions{Hierarchy: h, RockRidge: p.opts.RockRidge, Fallback: p.opts.Timestamp}

	var records [][]byte
	encode := func(n *filesystem.Node, role directory.Role) error {
		o := base
		o.Role = role
		o.Root = role == directory.RoleSelf && id == p.tree.Root
		o.Extent, o.DataLength = resolve(n.ID, n.IsDirectory)
		place := func() {
			o.Continuation = &extensions.Continuation{
				Block:  areaLBA + uint32(len(area)/consts.ISO9660_SECTOR_SIZE),
				Offset: uint32(len(area) % consts.ISO9660_SECTOR_SIZE),
			}
		}
		place()
		rec, ce, err := directory.EncodeWithContinuation(p.source(n), o)
		if err == nil && int(o.Continuation.Offset)+len(ce) > consts.ISO9660_SECTOR_SIZE {
			area = append(area, make([]byte, consts.ISO9660_SECTOR_SIZE-int(o.Continuation.Offset))...)
			place()
			rec, ce, err = directory.EncodeWithContinuation(p.source(n), o)
		}
		if err != nil {
			return fmt.Errorf("encode record for %s: %w", p.tree.Path(n.ID), err)
		}
		records = append(records, rec)
		area = append(area, ce...)
		return nil
	}

	if err := encode(dir, directory.RoleSelf); err != nil {
		return nil, nil, err
	}
	if err := encode(parent, directory.RoleParent); err != nil {
		return nil, nil, err
	}

	children := p.tree.Children(id)
	sort.SliceStable(children, func(i, j int) bool {
		return bytes.Compare(p.identifier(children[i], h), p.identifier(children[j], h)) < 0
	})
	for _, c := range children {
		if err := encode(c, directory.RoleChild); err != nil {
			return nil, nil, err
		}
	}

	for _, rec := range records {
		if off := len(buf) % consts.ISO9660_SECTOR_SIZE; off+len(rec) > consts.ISO9660_SECTOR_SIZE {
			buf = append(buf, make([]byte, consts.ISO9660_SECTOR_SIZE-off)...)
		}
		buf = append(buf, rec...)
	}
	return buf, area, nil
}
