package decoder

import (
	"github.com/justapithecus/jxlframe/buffer"
	"github.com/justapithecus/jxlframe/container"
	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/log"
	"github.com/justapithecus/jxlframe/metrics"
)

type config struct {
	engine           engine.Engine
	backend          string
	workers          int
	logger           *log.Logger
	collector        *metrics.Collector
	alloc            buffer.Allocator
	fullPrescan      bool
	allowUnsupported bool
	maxBoxSize       int
}

// Option configures a Decoder.
type Option func(*config)

// WithEngine decodes with eng instead of opening a registered backend.
// The decoder takes ownership and closes eng.
func WithEngine(eng engine.Engine) Option {
	return func(c *config) { c.engine = eng }
}

// WithBackend selects a registered engine backend by name.
func WithBackend(name string) Option {
	return func(c *config) { c.backend = name }
}

// WithWorkers bounds the backend's parallel runner.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithCollector records decode metrics into m.
func WithCollector(m *metrics.Collector) Option {
	return func(c *config) { c.collector = m }
}

// WithAllocator sets the allocator of all session buffers.
func WithAllocator(a buffer.Allocator) Option {
	return func(c *config) { c.alloc = a }
}

// WithFullPrescan runs the frame counting pass for still images too, so
// metadata boxes after the codestream are available right after New.
func WithFullPrescan() Option {
	return func(c *config) { c.fullPrescan = true }
}

// WithAllowUnsupportedMode lets Next decode pixel layouts without a named mode.
func WithAllowUnsupportedMode() Option {
	return func(c *config) { c.allowUnsupported = true }
}

// WithMaxBoxSize bounds the content of one metadata box. A larger box fails
// the decode with ErrMalformedInput, or is dropped when it is brotli
// compressed and decompressed locally. n <= 0 keeps container.MaxBoxSize.
func WithMaxBoxSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBoxSize = n
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		backend:    engine.DefaultBackend,
		workers:    engine.DefaultWorkers,
		maxBoxSize: container.MaxBoxSize,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = log.NewNop()
	}
	return c
}
