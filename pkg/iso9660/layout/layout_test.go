package layout

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/boot"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/descriptor"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/directory"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/extensions"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/pathtable"
)

var stamp = time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

func scenario(t *testing.T) (*filesystem.Tree, filesystem.NodeID, filesystem.NodeID) {
	tree := filesystem.NewTree(stamp)
	dir, err := tree.AddChild(tree.Root, filesystem.NewDirectory("DIR1", stamp))
	require.NoError(t, err)
	f1, err := tree.AddChild(dir, filesystem.NewFile("file1.txt", filesystem.Embedded{Data: []byte("hello")}, stamp))
	require.NoError(t, err)
	_, err = tree.AddChild(tree.Root, filesystem.NewFile("file2.txt", filesystem.Embedded{Data: []byte("world!")}, stamp))
	require.NoError(t, err)
	_, err = tree.AddChild(tree.Root, filesystem.NewFile("empty", filesystem.Embedded{}, stamp))
	require.NoError(t, err)
	return tree, dir, f1
}

func build(t *testing.T, tree *filesystem.Tree, opts Options) *Layout {
	plan, err := NewPlan(tree, opts)
	require.NoError(t, err)
	l, err := Allocate(plan)
	require.NoError(t, err)
	return l
}

func TestEmptyTree(t *testing.T) {
	tree := filesystem.NewTree(stamp)

	l := build(t, tree, Options{})
	assert.Equal(t, uint32(16+2+1+1+1), l.VolumeBlocks)
	assert.Equal(t, uint32(16), l.DescriptorLBA)
	assert.False(t, l.HasCatalog)

	l = build(t, tree, Options{Joliet: true, RockRidge: true})
	assert.Equal(t, uint32(16+3+4+2), l.VolumeBlocks)
}

func TestRequestOrder(t *testing.T) {
	tree, dir, f1 := scenario(t)
	l := build(t, tree, Options{Joliet: true, RockRidge: true, Boot: []BootImage{{Node: f1}}})

	var kinds []Kind
	for _, a := range l.Allocations {
		kinds = append(kinds, a.Kind)
	}
	assert.Equal(t, []Kind{
		SystemArea, Descriptor, BootCatalog,
		PathTableL, PathTableM, PathTableL, PathTableM,
		FilePayload, Directory, // DIR1/file1.txt, DIR1
		FilePayload, FilePayload, Directory, // empty, file2.txt, root
		Directory, Directory, // joliet DIR1, joliet root
	}, kinds)

	assert.Equal(t, uint32(16+4), l.CatalogLBA)
	assert.Less(t, l.DirExtent[directory.Plain][dir], l.DirExtent[directory.Plain][tree.Root])
	assert.Greater(t, l.DirExtent[directory.Joliet][dir], l.DirExtent[directory.Plain][tree.Root])
}

func TestAllocationsAreDisjoint(t *testing.T) {
	tree, _, _ := scenario(t)
	l := build(t, tree, Options{Joliet: true, RockRidge: true})

	var next uint32
	for _, a := range l.Allocations {
		assert.Equal(t, next, a.LBA, "allocation %s", a.Kind)
		assert.GreaterOrEqual(t, a.Blocks, uint32(1))
		next = a.LBA + a.Blocks
	}
	assert.Equal(t, next, l.VolumeBlocks)
	assert.Len(t, l.FileExtent, 3)
}

func TestSharedPayloads(t *testing.T) {
	tree, dir, f1 := scenario(t)
	l := build(t, tree, Options{Joliet: true, RockRidge: true})

	for _, h := range l.Hierarchies() {
		data, err := l.DirectoryRecords(h, dir)
		require.NoError(t, err)
		recs := decodeAll(t, data, h == directory.Joliet)
		require.Len(t, recs, 3)
		assert.Equal(t, l.FileExtent[f1], recs[2].Extent)
		assert.Equal(t, uint32(5), recs[2].Length)
		assert.Equal(t, l.DirExtent[h][dir], recs[0].Extent)
		assert.Equal(t, l.DirExtent[h][tree.Root], recs[1].Extent)
	}
}

func decodeAll(t *testing.T, data []byte, joliet bool) []*directory.Record {
	var out []*directory.Record
	for block := 0; block < len(data); block += consts.ISO9660_SECTOR_SIZE {
		off := block
		for off < block+consts.ISO9660_SECTOR_SIZE && data[off] != 0 {
			rec, err := directory.Decode(data[off:block+consts.ISO9660_SECTOR_SIZE], joliet)
			require.NoError(t, err)
			out = append(out, rec)
			off += rec.RecordLength
		}
	}
	return out
}

func TestLargeDirectorySpansBlocks(t *testing.T) {
	tree := filesystem.NewTree(stamp)
	for i := 0; i < 120; i++ {
		_, err := tree.AddChild(tree.Root, filesystem.NewFile(fmt.Sprintf("a-long-file-name-%03d.data", i), filesystem.Embedded{}, stamp))
		require.NoError(t, err)
	}
	l := build(t, tree, Options{RockRidge: true})

	length := l.DirLength[directory.Plain][tree.Root]
	assert.Greater(t, length, uint32(consts.ISO9660_SECTOR_SIZE))
	assert.Zero(t, length%consts.ISO9660_SECTOR_SIZE)

	data, err := l.DirectoryRecords(directory.Plain, tree.Root)
	require.NoError(t, err)
	assert.Len(t, data, int(length))
	recs := decodeAll(t, data, false)
	assert.Len(t, recs, 122)

	seen := map[string]bool{}
	for _, r := range recs[2:] {
		assert.False(t, seen[r.Identifier], "duplicate short name %s", r.Identifier)
		seen[r.Identifier] = true
	}
}

func TestRecordsSortedByIdentifier(t *testing.T) {
	tree := filesystem.NewTree(stamp)
	for _, name := range []string{"b.txt", "A.TXT", "c"} {
		_, err := tree.AddChild(tree.Root, filesystem.NewFile(name, filesystem.Embedded{}, stamp))
		require.NoError(t, err)
	}
	l := build(t, tree, Options{})
	data, err := l.DirectoryRecords(directory.Plain, tree.Root)
	require.NoError(t, err)
	var ids []string
	for _, r := range decodeAll(t, data, false)[2:] {
		ids = append(ids, r.Identifier)
	}
	assert.Equal(t, []string{"A.TXT", "B.TXT", "C"}, ids)
}

func TestDescriptorsAndPathTables(t *testing.T) {
	tree, dir, f1 := scenario(t)
	l := build(t, tree, Options{
		SystemID: "SYS", VolumeID: "vol", Joliet: true, RockRidge: true, Timestamp: stamp,
		Boot: []BootImage{{Node: f1, Platform: boot.BIOS}},
	})

	sectors, err := l.Descriptors()
	require.NoError(t, err)
	require.Len(t, sectors, 4)

	for i, h := range []directory.Hierarchy{directory.Plain, directory.Joliet} {
		idx := []int{0, 2}[i]
		vol, err := descriptor.DecodeVolume(sectors[idx], h == directory.Joliet)
		require.NoError(t, err)
		assert.Equal(t, l.VolumeBlocks, vol.VolumeBlocks)
		assert.Equal(t, l.PathTables[h].L, vol.LPathTable)
		assert.Equal(t, l.PathTables[h].M, vol.MPathTable)
		assert.Equal(t, l.PathTables[h].Size, vol.PathTableSize)

		root, err := directory.Decode(vol.RootRecord[:], h == directory.Joliet)
		require.NoError(t, err)
		assert.Equal(t, l.DirExtent[h][tree.Root], root.Extent)
		assert.Equal(t, l.DirLength[h][tree.Root], root.Length)

		lt, mt, err := l.PathTableData(h)
		require.NoError(t, err)
		assert.Len(t, lt, int(vol.PathTableSize))
		parsed, err := pathtable.ParsePathTable(mt, false)
		require.NoError(t, err)
		require.Len(t, parsed.Records, 2)
		assert.Equal(t, l.DirExtent[h][tree.Root], parsed.Records[0].LocationOfExtent)
		assert.Equal(t, l.DirExtent[h][dir], parsed.Records[1].LocationOfExtent)
	}

	catalog, err := l.BootCatalog()
	require.NoError(t, err)
	cat, err := boot.Parse(catalog[:], nil)
	require.NoError(t, err)
	assert.Equal(t, l.FileExtent[f1], cat.Default().ImageLBA)
	assert.Equal(t, uint16(1), cat.Default().SectorCount)
}

func TestPlanErrors(t *testing.T) {
	tree, dir, _ := scenario(t)
	_, err := NewPlan(tree, Options{Boot: []BootImage{{Node: dir}}})
	assert.Error(t, err)
	_, err = NewPlan(tree, Options{Boot: []BootImage{{Node: 9999}}})
	assert.Error(t, err)
}

func TestPrint(t *testing.T) {
	tree, _, f1 := scenario(t)
	l := build(t, tree, Options{Joliet: true, Boot: []BootImage{{Node: f1}}})
	var buf bytes.Buffer
	l.Print(&buf, false, true)
	out := buf.String()
	assert.Contains(t, out, "Boot Catalog")
	assert.Contains(t, out, "/DIR1/file1.txt (5 bytes)")
	assert.Contains(t, out, "/DIR1 (joliet)")
	assert.Equal(t, len(l.Allocations)+3, strings.Count(out, "\n"))
}

func TestLongJolietNamesStayUnique(t *testing.T) {
	tree := filesystem.NewTree(stamp)
	prefix := strings.Repeat("n", 70)
	a, err := tree.AddChild(tree.Root, filesystem.NewDirectory(prefix+"_dirA", stamp))
	require.NoError(t, err)
	b, err := tree.AddChild(tree.Root, filesystem.NewDirectory(prefix+"_dirB", stamp))
	require.NoError(t, err)

	plan, err := NewPlan(tree, Options{Joliet: true})
	require.NoError(t, err)
	idA, idB := plan.identifier(tree.Node(a), directory.Joliet), plan.identifier(tree.Node(b), directory.Joliet)
	assert.NotEqual(t, idA, idB)

	l, err := Allocate(plan)
	require.NoError(t, err)
	data, err := l.DirectoryRecords(directory.Joliet, tree.Root)
	require.NoError(t, err)
	recs := decodeAll(t, data, true)
	require.Len(t, recs, 4)
	extents := map[string]uint32{recs[2].Identifier: recs[2].Extent, recs[3].Identifier: recs[3].Extent}
	assert.Equal(t, map[string]uint32{
		strings.Repeat("n", 64):        l.DirExtent[directory.Joliet][a],
		strings.Repeat("n", 62) + "_1": l.DirExtent[directory.Joliet][b],
	}, extents)
}

func TestContinuationBlocksFollowRecords(t *testing.T) {
	tree, _, _ := scenario(t)
	target := strings.Repeat("longcomponent/", 20) + "end"
	for i := 0; i < 12; i++ {
		_, err := tree.AddChild(tree.Root, &filesystem.Node{Name: fmt.Sprintf("link%02d", i), ModTime: stamp, SymlinkTarget: target})
		require.NoError(t, err)
	}
	l := build(t, tree, Options{RockRidge: true})

	var dir Allocation
	for _, a := range l.Allocations {
		if a.Kind == Directory && a.Node == tree.Root {
			dir = a
		}
	}
	require.Greater(t, dir.Continuation, uint32(1))
	length := l.DirLength[directory.Plain][tree.Root]
	assert.Equal(t, (dir.Blocks-dir.Continuation)*consts.ISO9660_SECTOR_SIZE, length)

	data, err := l.DirectoryRecords(directory.Plain, tree.Root)
	require.NoError(t, err)
	assert.Len(t, data, int(dir.Blocks)*consts.ISO9660_SECTOR_SIZE)

	image := make([]byte, int(l.VolumeBlocks)*consts.ISO9660_SECTOR_SIZE)
	copy(image[int(dir.LBA)*consts.ISO9660_SECTOR_SIZE:], data)
	links := 0
	for _, rec := range decodeAll(t, data[:length], false) {
		rr := extensions.ParseRockRidge(extensions.ReadSystemUse(rec.SystemUse, bytes.NewReader(image), nil))
		if rr.SymlinkTarget != nil {
			assert.Equal(t, target, *rr.SymlinkTarget)
			links++
		}
	}
	assert.Equal(t, 12, links)
}
