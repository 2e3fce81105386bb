package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/cue"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/isoerr"
)

// directoryFor resolves the directory an add operation targets; a file target resolves to its parent.
func (c *ISOCore) directoryFor(target filesystem.NodeID) (*filesystem.Node, error) {
	n := c.tree.Node(target)
	if n == nil {
		return nil, fmt.Errorf("node %d is not in the tree", target)
	}
	if !n.IsDirectory {
		n = c.tree.Node(n.Parent)
	}
	return n, nil
}

// replaceable detaches a same-name sibling file so a new file can take its place. A sibling directory is an error.
func (c *ISOCore) replaceable(dir filesystem.NodeID, name string) error {
	existing := c.tree.Find(dir, name)
	if existing == nil {
		return nil
	}
	if existing.IsDirectory {
		return fmt.Errorf("%s already exists as a directory", c.tree.Path(existing.ID))
	}
	c.logger.Debug("Replacing existing file", "path", c.tree.Path(existing.ID))
	c.tree.Detach(existing.ID)
	return nil
}

// AddFile reads the local file at path into memory and adds it to the target directory, replacing a file of the
// same name. A file target adds next to it.
func (c *ISOCore) AddFile(path string, target filesystem.NodeID) (filesystem.NodeID, error) {
	if err := c.acquire(); err != nil {
		return 0, err
	}
	defer c.release()
	return c.addFile(path, target)
}

func (c *ISOCore) addFile(path string, target filesystem.NodeID) (filesystem.NodeID, error) {
	dir, err := c.directoryFor(target)
	if err != nil {
		return 0, err
	}
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, isoerr.NewNotFoundError(path, err)
		}
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if st.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	name := filepath.Base(path)
	if err := c.replaceable(dir.ID, name); err != nil {
		return 0, err
	}
	node := filesystem.NewFile(name, filesystem.Embedded{Data: data}, st.ModTime())
	node.Mode = st.Mode().Perm()
	node.IsNew = true
	id, err := c.tree.AddChild(dir.ID, node)
	if err != nil {
		return 0, err
	}
	c.modified = true
	c.logger.Info("Added file", "source", path, "path", c.tree.Path(id), "size", node.Size)
	return id, nil
}

// AddDirectory creates an empty directory under target. When a directory of the same name exists its id is returned
// with created set to false.
func (c *ISOCore) AddDirectory(name string, target filesystem.NodeID) (id filesystem.NodeID, created bool, err error) {
	if err := c.acquire(); err != nil {
		return 0, false, err
	}
	defer c.release()
	return c.addDirectory(name, target)
}

func (c *ISOCore) addDirectory(name string, target filesystem.NodeID) (filesystem.NodeID, bool, error) {
	dir, err := c.directoryFor(target)
	if err != nil {
		return 0, false, err
	}
	if existing := c.tree.Find(dir.ID, name); existing != nil && existing.IsDirectory {
		c.logger.Debug("Directory already exists", "path", c.tree.Path(existing.ID))
		return existing.ID, false, nil
	}
	node := filesystem.NewDirectory(name, c.now())
	node.IsNew = true
	id, err := c.tree.AddChild(dir.ID, node)
	if err != nil {
		return 0, false, err
	}
	c.modified = true
	c.logger.Info("Added directory", "path", c.tree.Path(id))
	return id, true, nil
}

// RemoveNode detaches id and everything below it. Removing the root or a node that is no longer in the tree does
// nothing and reports false.
func (c *ISOCore) RemoveNode(id filesystem.NodeID) (bool, error) {
	if err := c.acquire(); err != nil {
		return false, err
	}
	defer c.release()

	path := c.tree.Path(id)
	if !c.tree.Detach(id) {
		c.logger.Debug("Nothing to remove", "node", id)
		return false, nil
	}
	c.modified = true
	c.logger.Info("Removed node", "path", path)
	return true, nil
}

// ImportDirectory adds the local directory localDir, with everything below it, to target.
func (c *ISOCore) ImportDirectory(localDir string, target filesystem.NodeID) (filesystem.NodeID, error) {
	if err := c.acquire(); err != nil {
		return 0, err
	}
	defer c.release()

	st, err := os.Stat(localDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, isoerr.NewNotFoundError(localDir, err)
		}
		return 0, err
	}
	if !st.IsDir() {
		return 0, fmt.Errorf("%s is not a directory", localDir)
	}
	id, _, err := c.addDirectory(filepath.Base(filepath.Clean(localDir)), target)
	if err != nil {
		return 0, err
	}
	if err := c.importEntries(localDir, id); err != nil {
		return 0, err
	}
	return id, nil
}

func (c *ISOCore) importEntries(localDir string, dir filesystem.NodeID) error {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localDir, err)
	}
	for _, e := range entries {
		path := filepath.Join(localDir, e.Name())
		switch {
		case e.IsDir():
			sub, _, err := c.addDirectory(e.Name(), dir)
			if err != nil {
				return err
			}
			if err := c.importEntries(path, sub); err != nil {
				return err
			}
		case e.Type()&os.ModeSymlink != 0:
			if err := c.addSymlink(path, dir); err != nil {
				return err
			}
		case e.Type().IsRegular():
			if _, err := c.addFile(path, dir); err != nil {
				return err
			}
		default:
			c.logger.Debug("Skipping special file", "path", path)
		}
	}
	return nil
}

func (c *ISOCore) addSymlink(path string, dir filesystem.NodeID) error {
	target, err := os.Readlink(path)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", path, err)
	}
	st, err := os.Lstat(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	if err := c.replaceable(dir, name); err != nil {
		return err
	}
	node := &filesystem.Node{
		Name:          name,
		ModTime:       st.ModTime(),
		Mode:          st.Mode().Perm(),
		SymlinkTarget: target,
		IsNew:         true,
	}
	if _, err := c.tree.AddChild(dir, node); err != nil {
		return err
	}
	c.modified = true
	return nil
}

// AddCueTracks adds one read-only file per track, each covering its byte range of the BIN file at binPath.
func (c *ISOCore) AddCueTracks(binPath string, tracks []cue.Track, target filesystem.NodeID) ([]filesystem.NodeID, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	dir, err := c.directoryFor(target)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(binPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, isoerr.NewNotFoundError(binPath, err)
		}
		return nil, err
	}
	sizes, err := cue.Sizes(tracks, st.Size())
	if err != nil {
		return nil, err
	}

	ids := make([]filesystem.NodeID, 0, len(tracks))
	for i, t := range tracks {
		if err := c.replaceable(dir.ID, t.Name()); err != nil {
			return ids, err
		}
		node := filesystem.NewFile(t.Name(), filesystem.CueTrack{BinPath: binPath, Offset: t.Offset, Size: sizes[i]}, st.ModTime())
		node.ReadOnly = true
		id, err := c.tree.AddChild(dir.ID, node)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	c.modified = true
	c.logger.Info("Added CUE tracks", "bin", binPath, "tracks", len(ids))
	return ids, nil
}

// GetFileBytes returns the content of the file id.
func (c *ISOCore) GetFileBytes(id filesystem.NodeID) ([]byte, error) {
	n := c.tree.Node(id)
	if n == nil {
		return nil, fmt.Errorf("node %d is not in the tree", id)
	}
	if n.IsDirectory {
		return nil, fmt.Errorf("%s is a directory", c.tree.Path(id))
	}
	return c.ReadPayload(n)
}

// ReadPayload reads a file node's bytes from wherever its payload lives.
func (c *ISOCore) ReadPayload(n *filesystem.Node) ([]byte, error) {
	switch p := n.Payload.(type) {
	case nil:
		return []byte{}, nil
	case filesystem.Embedded:
		return p.Data, nil
	case filesystem.SourceImage:
		if c.source == nil {
			return nil, fmt.Errorf("%s: no source image is open", c.tree.Path(n.ID))
		}
		buf := make([]byte, p.Size)
		if p.Size == 0 {
			return buf, nil
		}
		if _, err := c.source.ReadAt(buf, int64(p.Extent)*consts.ISO9660_SECTOR_SIZE); err != nil {
			return nil, fmt.Errorf("failed to read %s from source image: %w", c.tree.Path(n.ID), err)
		}
		return buf, nil
	case filesystem.CueTrack:
		return cue.ReadRange(p.BinPath, p.Offset, p.Size)
	default:
		return nil, fmt.Errorf("%s: unsupported payload %T", c.tree.Path(n.ID), p)
	}
}
