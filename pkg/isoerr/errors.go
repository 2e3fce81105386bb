// Package isoerr defines the error types returned by the image codec. Errors are created with a stack trace
// attached and are matched with errors.As or errors.Is from the standard library.
package isoerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSaveInProgress is returned when a save or a tree mutation is attempted while another save is running.
var ErrSaveInProgress = errors.New("a save is already in progress")

// FormatError reports a source that is not a readable ISO 9660 image.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid ISO 9660 image: %s", e.Reason)
}

// NewFormatError returns a *FormatError carrying a stack trace.
func NewFormatError(format string, args ...interface{}) error {
	return errors.WithStack(&FormatError{Reason: fmt.Sprintf(format, args...)})
}

// NotFoundError reports a missing local file, boot image, or BIN file.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("not found: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// NewNotFoundError returns a *NotFoundError carrying a stack trace.
func NewNotFoundError(path string, err error) error {
	return errors.WithStack(&NotFoundError{Path: path, Err: err})
}

// CancelledError reports a save that was stopped by its cancel check. Stage names the write step that observed
// the cancellation.
type CancelledError struct {
	Stage string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("save cancelled during %s", e.Stage)
}

// NewCancelledError returns a *CancelledError carrying a stack trace.
func NewCancelledError(stage string) error {
	return errors.WithStack(&CancelledError{Stage: stage})
}

// IsFormat reports whether err is or wraps a *FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsCancelled reports whether err is or wraps a *CancelledError.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}
