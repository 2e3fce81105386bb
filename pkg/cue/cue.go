package cue

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/isoerr"
)

// Track is one track of a BIN file as listed by a CUE sheet.
type Track struct {
	Number int
	Title  string
	// Offset is the byte offset of the track's INDEX 01 in the BIN file.
	Offset int64
}

// Name returns the title, or TRACK_NN.wav for untitled tracks.
func (t Track) Name() string {
	if t.Title != "" {
		return t.Title
	}
	return fmt.Sprintf("TRACK_%02d.wav", t.Number)
}

// ParseMSF converts an MM:SS:FF position into a byte offset in a raw CD-DA BIN file.
func ParseMSF(msf string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(msf), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid MSF position %q", msf)
	}
	var v [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid MSF position %q", msf)
		}
		v[i] = n
	}
	minutes, seconds, frames := v[0], v[1], v[2]
	if seconds >= 60 || frames >= consts.CUE_FRAMES_PER_SECOND {
		return 0, fmt.Errorf("MSF position %q out of range", msf)
	}
	total := (minutes*60+seconds)*consts.CUE_FRAMES_PER_SECOND + frames
	return total * consts.CUE_BYTES_PER_FRAME, nil
}

// Sizes returns the byte size of every track: up to the next track's offset, and for the last track up to the end of
// the BIN file. Offsets must not decrease.
func Sizes(tracks []Track, binSize int64) ([]int64, error) {
	sizes := make([]int64, len(tracks))
	for i, t := range tracks {
		end := binSize
		if i+1 < len(tracks) {
			end = tracks[i+1].Offset
		}
		if end < t.Offset {
			if i+1 < len(tracks) {
				return nil, fmt.Errorf("track %d starts before track %d", tracks[i+1].Number, t.Number)
			}
			end = t.Offset
		}
		sizes[i] = end - t.Offset
	}
	return sizes, nil
}

// ReadRange reads size bytes at offset from the BIN file at path.
func ReadRange(path string, offset, size int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, isoerr.NewNotFoundError(path, err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, offset); err != nil && !(err == io.EOF && size == 0) {
		return nil, fmt.Errorf("failed to read %d bytes at %d from %s: %w", size, offset, path, err)
	}
	return buf, nil
}
