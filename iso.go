package iso

import (
	"github.com/bgrewell/iso-edit-kit/pkg/core"
	"github.com/bgrewell/iso-edit-kit/pkg/cue"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/boot"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/layout"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/parser"
	"github.com/bgrewell/iso-edit-kit/pkg/option"
)

// New returns an Image holding an empty tree.
func New(opts ...option.CreateOption) Image {
	return core.New(opts...)
}

// Open loads the image at location.
func Open(location string, opts ...option.CreateOption) (Image, error) {
	img := core.New(opts...)
	if err := img.Load(location); err != nil {
		return nil, err
	}
	return img, nil
}

// Image is an editable ISO 9660 image.
type Image interface {
	Load(path string) error
	Save(path string, opts ...option.SaveOption) error
	Layout(opts ...option.SaveOption) (*layout.Layout, error)
	Close() error
	Reset() error

	Tree() *filesystem.Tree
	Root() filesystem.NodeID
	NodePath(id filesystem.NodeID) string
	Modified() bool
	IsLoaded() bool
	CurrentPath() string
	Info() *parser.Info
	VolumeSize() uint32

	SystemID() string
	SetSystemID(id string)
	VolumeID() string
	SetVolumeID(id string)
	NonCompliantNames() []string

	AddFile(path string, target filesystem.NodeID) (filesystem.NodeID, error)
	AddDirectory(name string, target filesystem.NodeID) (filesystem.NodeID, bool, error)
	ImportDirectory(localDir string, target filesystem.NodeID) (filesystem.NodeID, error)
	AddCueTracks(binPath string, tracks []cue.Track, target filesystem.NodeID) ([]filesystem.NodeID, error)
	RemoveNode(id filesystem.NodeID) (bool, error)
	GetFileBytes(id filesystem.NodeID) ([]byte, error)

	SetBootImage(path string)
	SetEFIBootImage(path string)
	SetBootEmulation(e boot.Emulation)
	ExtractBootInfo() []core.BootInfo
	ReadBootImage(e boot.Entry) ([]byte, error)
}

var _ Image = (*core.ISOCore)(nil)
