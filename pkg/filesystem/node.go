package filesystem

import (
	"os"
	"time"
)

// NodeID identifies a node inside its Tree. IDs are never reused within a tree.
type NodeID uint64

// Payload says where the bytes of a file come from. The set of implementations is closed: Embedded, SourceImage
// and CueTrack.
type Payload interface {
	payload()
	// Len is the number of bytes the payload provides.
	Len() int64
}

// Embedded holds the bytes of a file added from the local filesystem.
type Embedded struct {
	Data []byte
}

// SourceImage is a byte range inside the image the tree was loaded from.
type SourceImage struct {
	Extent uint32
	Size   int64
}

// CueTrack is a byte range inside the BIN file that accompanies a CUE sheet.
type CueTrack struct {
	BinPath string
	Offset  int64
	Size    int64
}

func (Embedded) payload()    {}
func (SourceImage) payload() {}
func (CueTrack) payload()    {}

func (p Embedded) Len() int64    { return int64(len(p.Data)) }
func (p SourceImage) Len() int64 { return p.Size }
func (p CueTrack) Len() int64    { return p.Size }

// Node is a file or directory. Parent is a non-owning reference; the root is its own parent.
type Node struct {
	ID          NodeID
	Name        string
	IsDirectory bool
	IsHidden    bool
	// Size of the file in bytes, 0 for directories
	Size    int64
	ModTime time.Time
	// Mode carries the permission bits recorded by Rock Ridge, zero when unknown.
	Mode          os.FileMode
	SymlinkTarget string
	// ReadOnly marks nodes whose content cannot be replaced, such as CUE tracks.
	ReadOnly bool
	// IsNew is set on nodes added since the tree was loaded.
	IsNew   bool
	Payload Payload
	Parent  NodeID

	children []NodeID
}

// NewFile returns a detached file node whose size follows its payload.
func NewFile(name string, payload Payload, modTime time.Time) *Node {
	return &Node{Name: name, Payload: payload, Size: payload.Len(), ModTime: modTime}
}

// NewDirectory returns a detached directory node.
func NewDirectory(name string, modTime time.Time) *Node {
	return &Node{Name: name, IsDirectory: true, ModTime: modTime}
}

// IsSymlink reports whether the node carries a Rock Ridge symbolic link target.
func (n *Node) IsSymlink() bool {
	return n.SymlinkTarget != ""
}
