package core

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/boot"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/descriptor"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/parser"
	"github.com/bgrewell/iso-edit-kit/pkg/isoerr"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
	"github.com/bgrewell/iso-edit-kit/pkg/option"
)

// ISOCore owns one mutable tree together with the source image its unmodified files are read from.
//
// The core is not safe for concurrent use. The one exception is Save, which may run on another goroutine: while it is
// in flight every mutation, Load and a second Save fail with isoerr.ErrSaveInProgress.
type ISOCore struct {
	tree     *filesystem.Tree
	modified bool
	systemID string
	volumeID string
	logger   *logging.Logger
	openOpts []option.OpenOption

	source       *os.File
	currentPath  string
	info         *parser.Info
	volumeBlocks uint32

	bootImage     string
	efiImage      string
	bootEmulation boot.Emulation

	saving *semaphore.Weighted
}

// New returns a core holding an empty tree.
func New(opts ...option.CreateOption) *ISOCore {
	o := option.ApplyCreate(opts...)
	c := &ISOCore{
		logger:   o.Logger,
		openOpts: o.Open,
		saving:   semaphore.NewWeighted(1),
	}
	c.init(o.SystemID, o.VolumeID)
	return c
}

func (c *ISOCore) init(systemID, volumeID string) {
	c.tree = filesystem.NewTree(time.Now())
	c.modified = false
	c.systemID, c.volumeID = systemID, volumeID
	c.currentPath = ""
	c.info = nil
	c.volumeBlocks = 0
	c.bootImage, c.efiImage = "", ""
	c.bootEmulation = boot.NoEmulation
}

// acquire fails when a save is in flight. Every operation that replaces or mutates the tree holds it.
func (c *ISOCore) acquire() error {
	if !c.saving.TryAcquire(1) {
		return isoerr.ErrSaveInProgress
	}
	return nil
}

func (c *ISOCore) release() {
	c.saving.Release(1)
}

// Load replaces the tree with the one read from the image at path. The image stays open for lazy reads of file
// content until the next Load, Reset or Close. Nothing changes when the image cannot be read.
func (c *ISOCore) Load(path string) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	c.logger.Info("Loading image", "path", path)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return isoerr.NewNotFoundError(path, err)
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	set, err := descriptor.Scan(f, c.logger)
	if err != nil {
		f.Close()
		return err
	}
	opts := option.ApplyOpen(append([]option.OpenOption{option.WithLogger(c.logger)}, c.openOpts...)...)
	tree, info, err := parser.Build(f, set, opts)
	if err != nil {
		f.Close()
		return err
	}

	c.closeSource()
	c.init(info.SystemID, info.VolumeID)
	c.tree = tree
	c.info = info
	c.source = f
	c.currentPath = path
	c.volumeBlocks = info.VolumeBlocks

	c.logger.Info("Image loaded",
		"path", path,
		"nodes", tree.Len(),
		"hierarchy", string(info.Hierarchy),
		"bootable", info.Boot != nil)
	return nil
}

func (c *ISOCore) closeSource() error {
	if c.source == nil {
		return nil
	}
	err := c.source.Close()
	c.source = nil
	return err
}

// Close releases the source image. The tree stays usable for everything except reads of loaded file content.
func (c *ISOCore) Close() error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	return c.closeSource()
}

// Reset releases the source image and starts over with an empty tree and default identifiers.
func (c *ISOCore) Reset() error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	c.logger.Info("Initializing new image")
	err := c.closeSource()
	c.init(consts.DEFAULT_SYSTEM_ID, consts.DEFAULT_VOLUME_ID)
	return err
}

func (c *ISOCore) Tree() *filesystem.Tree {
	return c.tree
}

func (c *ISOCore) Root() filesystem.NodeID {
	return c.tree.Root
}

// Modified reports whether the tree changed since it was created, loaded or saved.
func (c *ISOCore) Modified() bool {
	return c.modified
}

func (c *ISOCore) SystemID() string {
	return c.systemID
}

func (c *ISOCore) SetSystemID(id string) {
	if id != c.systemID {
		c.systemID = id
		c.modified = true
	}
}

func (c *ISOCore) VolumeID() string {
	return c.volumeID
}

func (c *ISOCore) SetVolumeID(id string) {
	if id != c.volumeID {
		c.volumeID = id
		c.modified = true
	}
}

// NonCompliantNames lists the paths whose names do not survive the level 1 short name mapping unchanged.
func (c *ISOCore) NonCompliantNames() []string {
	return filesystem.FindNonCompliantNames(c.tree)
}

func (c *ISOCore) NodePath(id filesystem.NodeID) string {
	return c.tree.Path(id)
}

// Info describes the image last loaded, nil for a created tree.
func (c *ISOCore) Info() *parser.Info {
	return c.info
}

// CurrentPath is the path of the image last loaded or saved.
func (c *ISOCore) CurrentPath() string {
	return c.currentPath
}

// IsLoaded reports whether a source image is open.
func (c *ISOCore) IsLoaded() bool {
	return c.source != nil
}

// VolumeSize returns the size in blocks of the image last loaded or saved.
func (c *ISOCore) VolumeSize() uint32 {
	return c.volumeBlocks
}
