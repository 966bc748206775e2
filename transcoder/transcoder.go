package transcoder

import (
	"go.uber.org/zap"

	"github.com/wippyai/amf"
	"github.com/wippyai/amf/codec"
)

// DefaultMaxDepth bounds recursion through nested tagged values.
const DefaultMaxDepth = 64

// DefaultVersion is the packet version used by EncodeDefault.
const DefaultVersion = codec.DefaultVersion

type config struct {
	codec    amf.Codec
	catalog  *Catalog
	registry *ShapeRegistry
	logger   *zap.Logger
	maxDepth int
	strict   bool
}

// Option configures encoders, decoders and synthesizers.
type Option func(*config)

// WithCodec replaces the AMF codec, codec.Default by default.
func WithCodec(c amf.Codec) Option {
	return func(cfg *config) { cfg.codec = c }
}

// WithCatalog sets the catalog of declared types. Without one nothing is
// tagged and every value passes through unchanged.
func WithCatalog(c *Catalog) Option {
	return func(cfg *config) { cfg.catalog = c }
}

// WithRegistry shares a shape registry between encoders.
func WithRegistry(r *ShapeRegistry) Option {
	return func(cfg *config) { cfg.registry = r }
}

// WithStrictShapes makes a Go type that disagrees with the registered shape
// of its exposed name an encode error instead of a logged warning.
func WithStrictShapes() Option {
	return func(cfg *config) { cfg.strict = true }
}

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxDepth = n
		}
	}
}

// WithLogger overrides the package logger for one instance.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

func newConfig(opts []Option) config {
	cfg := config{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.codec == nil {
		cfg.codec = codec.Default
	}
	if cfg.catalog == nil {
		cfg.catalog = NewCatalog()
	}
	if cfg.registry == nil {
		cfg.registry = NewShapeRegistry()
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}
	return cfg
}
