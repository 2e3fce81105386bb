package option

import (
	"github.com/bgrewell/iso-edit-kit/pkg/consts"
	"github.com/bgrewell/iso-edit-kit/pkg/logging"
)

type OpenOptions struct {
	PreferJoliet     bool
	StripVersionInfo bool
	RockRidgeEnabled bool
	ElToritoEnabled  bool
	MaxDepth         int
	Logger           *logging.Logger
}

type OpenOption func(*OpenOptions)

// DefaultOpenOptions returns the options used when loading an image without explicit settings.
func DefaultOpenOptions() *OpenOptions {
	return &OpenOptions{
		PreferJoliet:     true,
		StripVersionInfo: true,
		RockRidgeEnabled: true,
		ElToritoEnabled:  true,
		MaxDepth:         consts.ISO9660_MAX_DIRECTORY_DEPTH,
		Logger:           logging.DefaultLogger(),
	}
}

// ApplyOpen builds OpenOptions from the defaults and the given options.
func ApplyOpen(opts ...OpenOption) *OpenOptions {
	o := DefaultOpenOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.Logger = logging.OrDefault(o.Logger)
	if o.MaxDepth <= 0 {
		o.MaxDepth = consts.ISO9660_MAX_DIRECTORY_DEPTH
	}
	return o
}

func WithLogger(logger *logging.Logger) OpenOption {
	return func(o *OpenOptions) {
		o.Logger = logger
	}
}

func WithStripVersionInfo(stripVersionInfo bool) OpenOption {
	return func(o *OpenOptions) {
		o.StripVersionInfo = stripVersionInfo
	}
}

func WithPreferJoliet(preferJoliet bool) OpenOption {
	return func(o *OpenOptions) {
		o.PreferJoliet = preferJoliet
	}
}

func WithRockRidgeEnabled(rockRidgeEnabled bool) OpenOption {
	return func(o *OpenOptions) {
		o.RockRidgeEnabled = rockRidgeEnabled
	}
}

func WithElToritoEnabled(elToritoEnabled bool) OpenOption {
	return func(o *OpenOptions) {
		o.ElToritoEnabled = elToritoEnabled
	}
}

// WithMaxDepth bounds how deep the tree builder descends into nested directories.
func WithMaxDepth(depth int) OpenOption {
	return func(o *OpenOptions) {
		o.MaxDepth = depth
	}
}
