package pathtable

import (
	"bytes"
	"fmt"
	"sort"
)

// Dir is one directory as seen by the path table.
type Dir struct {
	// Key identifies the directory for the caller. It is used to look up the directory's extent.
	Key int
	// Path holds the encoded identifier of every component below the root. The root has an empty path.
	Path [][]byte
	// Number and Parent are assigned by Number. Both are 1-based; the root is its own parent.
	Number uint16
	Parent uint16
}

// Identifier returns the identifier recorded for the directory, 0x00 for the root.
func (d Dir) Identifier() []byte {
	if len(d.Path) == 0 {
		return []byte{0x00}
	}
	return d.Path[len(d.Path)-1]
}

func comparePaths(a, b [][]byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := bytes.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func pathKey(p [][]byte) string {
	var sb bytes.Buffer
	for _, c := range p {
		sb.WriteByte('/')
		sb.Write(c)
	}
	return sb.String()
}

// Number sorts dirs by full path, component by component, and assigns record numbers starting at 1 for the root.
// Every parent sorts ahead of its children so parent numbers are always lower than the record's own number.
func Number(dirs []Dir) ([]Dir, error) {
	out := append([]Dir(nil), dirs...)
	sort.SliceStable(out, func(i, j int) bool {
		return comparePaths(out[i].Path, out[j].Path) < 0
	})
	if len(out) == 0 || len(out[0].Path) != 0 {
		return nil, fmt.Errorf("path table has no root directory")
	}
	if len(out) > 0xFFFF {
		return nil, fmt.Errorf("too many directories for a path table: %d", len(out))
	}

	numbers := make(map[string]uint16, len(out))
	for i := range out {
		out[i].Number = uint16(i + 1)
		key := pathKey(out[i].Path)
		if _, dup := numbers[key]; dup {
			return nil, fmt.Errorf("duplicate directory path %q", key)
		}
		numbers[key] = out[i].Number
		if len(out[i].Path) == 0 {
			out[i].Parent = 1
			continue
		}
		parent, ok := numbers[pathKey(out[i].Path[:len(out[i].Path)-1])]
		if !ok {
			return nil, fmt.Errorf("directory %q has no parent entry", key)
		}
		out[i].Parent = parent
	}
	return out, nil
}

// Size returns the byte length of a path table holding dirs.
func Size(dirs []Dir) int {
	n := 0
	for _, d := range dirs {
		r := PathTableRecord{DirectoryIdentifier: d.Identifier()}
		n += r.Length()
	}
	return n
}

// Generate builds the type L and type M tables for numbered dirs. extents maps each Dir.Key to the first block of
// the directory's records.
func Generate(dirs []Dir, extents map[int]uint32) (l, m []byte, err error) {
	lt := &PathTable{LittleEndian: true}
	mt := &PathTable{}
	for _, d := range dirs {
		extent, ok := extents[d.Key]
		if !ok {
			return nil, nil, fmt.Errorf("no extent for directory %q", pathKey(d.Path))
		}
		r := &PathTableRecord{
			LocationOfExtent:      extent,
			ParentDirectoryNumber: d.Parent,
			DirectoryIdentifier:   d.Identifier(),
		}
		lt.Records = append(lt.Records, r)
		mt.Records = append(mt.Records, r)
	}
	if l, err = lt.Marshal(); err != nil {
		return nil, nil, err
	}
	if m, err = mt.Marshal(); err != nil {
		return nil, nil, err
	}
	return l, m, nil
}
