package option

import (
	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
)

type CreateOptions struct {
	SystemID string
	VolumeID string
	Logger   *logging.Logger
	// Open holds the options used by every later Load on the created core.
	Open []OpenOption
}

type CreateOption func(*CreateOptions)

// ApplyCreate builds CreateOptions from the defaults and the given options.
func ApplyCreate(opts ...CreateOption) *CreateOptions {
	o := &CreateOptions{
		SystemID: consts.DEFAULT_SYSTEM_ID,
		VolumeID: consts.DEFAULT_VOLUME_ID,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.Logger = logging.OrDefault(o.Logger)
	return o
}

func WithSystemID(id string) CreateOption {
	return func(o *CreateOptions) {
		o.SystemID = id
	}
}

func WithVolumeID(id string) CreateOption {
	return func(o *CreateOptions) {
		o.VolumeID = id
	}
}

func WithCreateLogger(logger *logging.Logger) CreateOption {
	return func(o *CreateOptions) {
		o.Logger = logger
	}
}

// WithOpenOptions sets the options applied when the core loads an image.
func WithOpenOptions(opts ...OpenOption) CreateOption {
	return func(o *CreateOptions) {
		o.Open = append(o.Open, opts...)
	}
}
