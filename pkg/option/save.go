package option

import (
	"context"
	"time"

	"github.com/bgrewell/iso-edit-kit/pkg/logging"
)

// SaveProgressCallback receives progress updates while an image is written. bytesWritten never decreases during a
// single save and reaches totalBytes when the last region has been written.
type SaveProgressCallback func(
	currentFilename string,
	bytesWritten int64,
	totalBytes int64,
	currentFileNumber int,
	totalFileCount int,
)

// CancelFunc is polled before every directory and file write. Returning true aborts the save.
type CancelFunc func() bool

type SaveOptions struct {
	UseJoliet    bool
	UseRockRidge bool
	// UseUDF is accepted for compatibility with callers that request it; UDF structures are not authored.
	UseUDF     bool
	MakeHybrid bool
	// Timestamp is recorded in every descriptor and directory record. The zero value means time.Now().
	Timestamp time.Time
	Progress  SaveProgressCallback
	Cancel    CancelFunc
	Context   context.Context
	Logger    *logging.Logger
}

type SaveOption func(*SaveOptions)

// ApplySave builds SaveOptions from the defaults and the given options.
func ApplySave(opts ...SaveOption) *SaveOptions {
	o := &SaveOptions{
		UseJoliet:    true,
		UseRockRidge: true,
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now()
	}
	return o
}

// Cancelled reports whether the save should stop, either through the cancel check or the context.
func (o *SaveOptions) Cancelled() bool {
	if o.Context != nil && o.Context.Err() != nil {
		return true
	}
	return o.Cancel != nil && o.Cancel()
}

func WithJoliet(useJoliet bool) SaveOption {
	return func(o *SaveOptions) {
		o.UseJoliet = useJoliet
	}
}

func WithRockRidge(useRockRidge bool) SaveOption {
	return func(o *SaveOptions) {
		o.UseRockRidge = useRockRidge
	}
}

func WithUDF(useUDF bool) SaveOption {
	return func(o *SaveOptions) {
		o.UseUDF = useUDF
	}
}

func WithHybrid(makeHybrid bool) SaveOption {
	return func(o *SaveOptions) {
		o.MakeHybrid = makeHybrid
	}
}

// WithTimestamp fixes the recording time so repeated saves of the same tree are byte-identical.
func WithTimestamp(ts time.Time) SaveOption {
	return func(o *SaveOptions) {
		o.Timestamp = ts
	}
}

// WithSaveProgress sets a progress callback function that will be called with progress updates.
// Parameters:
// - currentFilename: The path of the file or directory currently being written.
// - bytesWritten: The number of image bytes written so far.
// - totalBytes: The total size of the image in bytes.
// - currentFileNumber: The index of the current file being written.
// - totalFileCount: The total number of files to be written.
func WithSaveProgress(callback SaveProgressCallback) SaveOption {
	return func(o *SaveOptions) {
		o.Progress = callback
	}
}

func WithCancel(cancel CancelFunc) SaveOption {
	return func(o *SaveOptions) {
		o.Cancel = cancel
	}
}

func WithContext(ctx context.Context) SaveOption {
	return func(o *SaveOptions) {
		o.Context = ctx
	}
}

func WithSaveLogger(logger *logging.Logger) SaveOption {
	return func(o *SaveOptions) {
		o.Logger = logger
	}
}
