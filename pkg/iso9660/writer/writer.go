package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/filesystem"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/directory"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/layout"
	"github.com/bgrewell/iso-edit-kit/pkg/iso9660/systemarea"
	"github.com/bgrewell/iso-edit-kit/pkg/isoerr"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
	"github.com/bgrewell/iso-edit-kit/pkg/option"
)

// PayloadSource returns the bytes of a file node. The writer never opens source images or companion files itself.
type PayloadSource interface {
	ReadPayload(n *filesystem.Node) ([]byte, error)
}

// Job is everything needed to write one image.
type Job struct {
	Layout *layout.Layout
	Source PayloadSource
	// Hybrid, when set, is written into the system area after every region has been written.
	Hybrid *systemarea.Hybrid
}

// Write renders job into a temporary file next to dest and renames it over dest once complete. On failure or
// cancellation the temporary file is removed and dest is left as it was.
func Write(ctx context.Context, dest string, job Job, opts *option.SaveOptions) (err error) {
	if opts == nil {
		opts = option.ApplySave()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.OrDefault(opts.Logger)

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary image: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := &imageWriter{
		ctx:    ctx,
		file:   tmp,
		job:    job,
		opts:   opts,
		logger: logger,
		total:  int64(job.Layout.VolumeBlocks) * consts.ISO9660_SECTOR_SIZE,
	}
	if err = tmp.Truncate(w.total); err != nil {
		return fmt.Errorf("failed to size temporary image: %w", err)
	}
	if err = w.run(); err != nil {
		return err
	}

	if job.Hybrid != nil {
		if err = systemarea.Hybridize(tmp, *job.Hybrid, logger); err != nil {
			return err
		}
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temporary image: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary image: %w", err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("failed to publish image: %w", err)
	}
	logger.Info("Image written", "path", dest, "blocks", job.Layout.VolumeBlocks)
	return nil
}

type imageWriter struct {
	ctx    context.Context
	file   *os.File
	job    Job
	opts   *option.SaveOptions
	logger *logging.Logger

	total     int64
	written   int64
	fileNum   int
	fileCount int
}

func (w *imageWriter) cancelled() bool {
	return w.ctx.Err() != nil || w.opts.Cancelled()
}

func (w *imageWriter) run() error {
	l := w.job.Layout
	tree := l.Tree()
	for _, a := range l.Allocations {
		if a.Kind == layout.FilePayload {
			w.fileCount++
		}
	}

	tables := make(map[directory.Hierarchy][2][]byte)
	for _, a := range l.Allocations {
		var name string
		switch a.Kind {
		case layout.SystemArea:
			name = "system area"

		case layout.Descriptor:
			name = "volume descriptors"
			descriptors, err := l.Descriptors()
			if err != nil {
				return fmt.Errorf("failed to assemble volume descriptors: %w", err)
			}
			for i, d := range descriptors {
				if err := w.writeAt(d[:], a.LBA+uint32(i)); err != nil {
					return err
				}
			}

		case layout.BootCatalog:
			name = "boot catalog"
			catalog, err := l.BootCatalog()
			if err != nil {
				return fmt.Errorf("failed to build boot catalog: %w", err)
			}
			if err := w.writeAt(catalog[:], a.LBA); err != nil {
				return err
			}

		case layout.PathTableL, layout.PathTableM:
			name = fmt.Sprintf("%s path table", a.Hierarchy)
			pair, ok := tables[a.Hierarchy]
			if !ok {
				lt, mt, err := l.PathTableData(a.Hierarchy)
				if err != nil {
					return fmt.Errorf("failed to generate %s path tables: %w", a.Hierarchy, err)
				}
				pair = [2][]byte{lt, mt}
				tables[a.Hierarchy] = pair
			}
			data := pair[0]
			if a.Kind == layout.PathTableM {
				data = pair[1]
			}
			if err := w.writeAt(data, a.LBA); err != nil {
				return err
			}

		case layout.Directory:
			name = tree.Path(a.Node)
			if w.cancelled() {
				return w.cancel(name)
			}
			records, err := l.DirectoryRecords(a.Hierarchy, a.Node)
			if err != nil {
				return err
			}
			if err := w.writeAt(records, a.LBA); err != nil {
				return err
			}

		case layout.FilePayload:
			name = tree.Path(a.Node)
			if w.cancelled() {
				return w.cancel(name)
			}
			w.fileNum++
			n := tree.Node(a.Node)
			data, err := w.job.Source.ReadPayload(n)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", name, err)
			}
			if int64(len(data)) != n.Size {
				return fmt.Errorf("payload of %s is %d bytes, expected %d", name, len(data), n.Size)
			}
			if err := w.writeAt(data, a.LBA); err != nil {
				return err
			}
		}

		w.logger.Trace("Wrote region", "kind", a.Kind.String(), "name", name, "lba", a.LBA, "blocks", a.Blocks)
		w.written += int64(a.Blocks) * consts.ISO9660_SECTOR_SIZE
		if w.opts.Progress != nil {
			w.opts.Progress(name, w.written, w.total, w.fileNum, w.fileCount)
		}
	}
	return nil
}

func (w *imageWriter) writeAt(b []byte, lba uint32) error {
	if len(b) == 0 {
		return nil
	}
	if _, err := w.file.WriteAt(b, int64(lba)*consts.ISO9660_SECTOR_SIZE); err != nil {
		return fmt.Errorf("failed to write at block %d: %w", lba, err)
	}
	return nil
}

func (w *imageWriter) cancel(stage string) error {
	w.logger.Info("Save cancelled", "at", stage, "written", w.written, "total", w.total)
	return isoerr.NewCancelledError(stage)
}
