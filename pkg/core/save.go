package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/boot"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/layout"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/systemarea"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/writer"
	"github.com/bgrewell/iso-edit-kit/pkg/isoerr"
	"github.com/bgrewell/iso-edit-kit/pkg/option"
)

func (c *ISOCore) now() time.Time {
	return time.Now()
}

// SetBootImage sets the local BIOS boot image added under /BOOT on every save. An empty path clears it.
func (c *ISOCore) SetBootImage(path string) {
	c.bootImage = path
	c.modified = true
}

// SetEFIBootImage sets the local EFI boot image added under /BOOT on every save. An empty path clears it.
func (c *ISOCore) SetEFIBootImage(path string) {
	c.efiImage = path
	c.modified = true
}

// SetBootEmulation sets the emulation recorded for the BIOS boot image.
func (c *ISOCore) SetBootEmulation(e boot.Emulation) {
	c.bootEmulation = e
	c.modified = true
}

func (c *ISOCore) BootImage() string {
	return c.bootImage
}

func (c *ISOCore) EFIBootImage() string {
	return c.efiImage
}

func (c *ISOCore) BootEmulation() boot.Emulation {
	return c.bootEmulation
}

// BootInfo describes one entry of the boot catalog of the loaded image.
type BootInfo struct {
	Platform  boot.Platform
	Emulation boot.Emulation
	Entry     boot.Entry
	// Path is the tree path of the file whose extent holds the boot image, empty when no file points at it.
	Path string
}

// ExtractBootInfo lists the boot catalog entries of the loaded image. It returns nil for images without a catalog.
func (c *ISOCore) ExtractBootInfo() []BootInfo {
	if c.info == nil || c.info.Boot == nil {
		return nil
	}
	byExtent := make(map[uint32]string)
	_ = c.tree.Walk(func(n *filesystem.Node, path string) error {
		if src, ok := n.Payload.(filesystem.SourceImage); ok {
			byExtent[src.Extent] = path
		}
		return nil
	})

	var out []BootInfo
	for _, e := range c.info.Boot.Entries {
		out = append(out, BootInfo{
			Platform:  e.Platform,
			Emulation: e.Emulation,
			Entry:     e,
			Path:      byExtent[e.ImageLBA],
		})
	}
	return out
}

// ReadBootImage returns the bytes a boot catalog entry of the loaded image points at.
func (c *ISOCore) ReadBootImage(e boot.Entry) ([]byte, error) {
	if c.source == nil {
		return nil, fmt.Errorf("no source image is open")
	}
	return boot.ReadImage(c.source, e)
}

type stagedImage struct {
	path      string
	platform  boot.Platform
	emulation boot.Emulation
}

// stageBootImages inserts the configured boot images under /BOOT. The returned function removes every node it added
// and may be called more than once.
func (c *ISOCore) stageBootImages(now time.Time) ([]layout.BootImage, func(), error) {
	var staged []stagedImage
	if c.bootImage != "" {
		staged = append(staged, stagedImage{c.bootImage, boot.BIOS, c.bootEmulation})
	}
	if c.efiImage != "" {
		staged = append(staged, stagedImage{c.efiImage, boot.EFI, boot.NoEmulation})
	}
	if len(staged) == 0 {
		return nil, func() {}, nil
	}

	data := make([][]byte, len(staged))
	for i, s := range staged {
		b, err := os.ReadFile(s.path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil, isoerr.NewNotFoundError(s.path, err)
			}
			return nil, nil, fmt.Errorf("failed to read boot image %s: %w", s.path, err)
		}
		data[i] = b
	}

	var added []filesystem.NodeID
	restore := func() {
		for i := len(added) - 1; i >= 0; i-- {
			c.tree.Detach(added[i])
		}
		added = nil
	}

	dir := c.tree.Find(c.tree.Root, consts.BOOT_DIRECTORY_NAME)
	if dir == nil {
		id, err := c.tree.AddChild(c.tree.Root, filesystem.NewDirectory(consts.BOOT_DIRECTORY_NAME, now))
		if err != nil {
			return nil, nil, err
		}
		added = append(added, id)
		dir = c.tree.Node(id)
	} else if !dir.IsDirectory {
		return nil, nil, fmt.Errorf("/%s exists and is not a directory", consts.BOOT_DIRECTORY_NAME)
	}

	var images []layout.BootImage
	for i, s := range staged {
		name := c.freeName(dir.ID, filepath.Base(s.path))
		id, err := c.tree.AddChild(dir.ID, filesystem.NewFile(name, filesystem.Embedded{Data: data[i]}, now))
		if err != nil {
			restore()
			return nil, nil, err
		}
		added = append(added, id)
		images = append(images, layout.BootImage{Node: id, Platform: s.platform, Emulation: s.emulation})
		c.logger.Debug("Staged boot image", "source", s.path, "path", c.tree.Path(id), "platform", s.platform.String())
	}
	return images, restore, nil
}

// freeName returns name, or name with a _N suffix before its extension when dir already holds that name.
func (c *ISOCore) freeName(dir filesystem.NodeID, name string) string {
	if c.tree.Find(dir, name) == nil {
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if c.tree.Find(dir, candidate) == nil {
			return candidate
		}
	}
}

// hybrid describes the MBR for a hybrid image: boot code from the BIOS image and a partition for the EFI image.
func (c *ISOCore) hybrid(l *layout.Layout, images []layout.BootImage) (*systemarea.Hybrid, error) {
	h := &systemarea.Hybrid{VolumeBlocks: l.VolumeBlocks}
	for _, img := range images {
		n := l.Tree().Node(img.Node)
		switch img.Platform {
		case boot.BIOS:
			data, err := c.ReadPayload(n)
			if err != nil {
				return nil, err
			}
			if len(data) >= systemarea.MBR_SECTOR_SIZE {
				h.BootSector = data[:systemarea.MBR_SECTOR_SIZE]
			}
		case boot.EFI:
			h.EFI = &systemarea.Region{LBA: l.FileExtent[img.Node], Size: n.Size}
		}
	}
	return h, nil
}

// Save writes the tree to path. The image is rendered into a temporary file in the same directory and renamed over
// path only once it is complete, so a failed or cancelled save leaves path untouched. Configured boot images are
// placed under /BOOT for the duration of the save only.
//
// After a successful save the core reads from the new image: path becomes the current path and every file that was
// written from memory or from the previous source image now refers to its extent in the new image.
func (c *ISOCore) Save(path string, opts ...option.SaveOption) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	o := option.ApplySave(opts...)
	if o.Logger == nil {
		o.Logger = c.logger
	}
	c.logger.Info("Saving image", "path", path, "joliet", o.UseJoliet, "rockRidge", o.UseRockRidge, "hybrid", o.MakeHybrid)
	if o.UseUDF {
		c.logger.Debug("UDF authoring is not supported, writing ISO 9660 structures only")
	}

	images, restore, err := c.stageBootImages(o.Timestamp)
	if err != nil {
		return err
	}
	defer restore()

	l, err := c.layout(o, images)
	if err != nil {
		return err
	}

	job := writer.Job{Layout: l, Source: c}
	if o.MakeHybrid {
		if job.Hybrid, err = c.hybrid(l, images); err != nil {
			return err
		}
	}
	if err := writer.Write(o.Context, path, job, o); err != nil {
		return err
	}

	restore()
	return c.adopt(path, l)
}

func (c *ISOCore) layout(o *option.SaveOptions, images []layout.BootImage) (*layout.Layout, error) {
	plan, err := layout.NewPlan(c.tree, layout.Options{
		SystemID:  c.systemID,
		VolumeID:  c.volumeID,
		Joliet:    o.UseJoliet,
		RockRidge: o.UseRockRidge,
		Boot:      images,
		Timestamp: o.Timestamp,
		Logger:    o.Logger,
	})
	if err != nil {
		return nil, err
	}
	return layout.Allocate(plan)
}

// Layout places the tree the way Save would with the same options, without writing anything. Configured boot images
// are not part of the preview.
func (c *ISOCore) Layout(opts ...option.SaveOption) (*layout.Layout, error) {
	o := option.ApplySave(opts...)
	if o.Logger == nil {
		o.Logger = c.logger
	}
	return c.layout(o, nil)
}

// adopt switches the source over to the image just written at path.
func (c *ISOCore) adopt(path string, l *layout.Layout) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("image saved but could not be reopened: %w", err)
	}
	_ = c.tree.Walk(func(n *filesystem.Node, _ string) error {
		if n.IsDirectory {
			return nil
		}
		switch n.Payload.(type) {
		case filesystem.Embedded, filesystem.SourceImage:
			if extent, ok := l.FileExtent[n.ID]; ok {
				n.Payload = filesystem.SourceImage{Extent: extent, Size: n.Size}
				n.IsNew = false
			}
		}
		return nil
	})
	c.closeSource()
	c.source = f
	c.currentPath = path
	c.volumeBlocks = l.VolumeBlocks
	c.modified = false
	c.logger.Info("Image saved", "path", path, "blocks", l.VolumeBlocks)
	return nil
}
