package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/jxlframe/cli/config"
	"github.com/justapithecus/jxlframe/decoder"
	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/iox"
	"github.com/justapithecus/jxlframe/log"
	"github.com/justapithecus/jxlframe/metrics"
	"github.com/justapithecus/jxlframe/types"
)

// Exit codes. Decode and storage failures are only reported by export.
const (
	exitSuccess      = 0
	exitUsage        = 1
	exitDecodeError  = 2
	exitStorageError = 3
)

// env is the per-invocation state every command starts from: the loaded
// config file, a leveled logger and a metrics collector.
type env struct {
	cfg       *config.Config
	logger    *log.Logger
	collector *metrics.Collector

	backend              string
	workers              int
	fullPrescan          bool
	allowUnsupportedMode bool
	maxInputBytes        int64
	textfile             string
}

// newEnv resolves the global flags against the config file.
func newEnv(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(resolveString(c, "log-level", configVal(cfg, func(c *config.Config) string { return c.LogLevel })))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	logger := log.NewLogger(nil).WithOutput(c.App.ErrWriter)
	logger.SetLevel(level)

	e := &env{
		cfg:                  cfg,
		logger:               logger,
		backend:              resolveString(c, "backend", configVal(cfg, func(c *config.Config) string { return c.Backend })),
		workers:              resolveInt(c, "workers", configVal(cfg, func(c *config.Config) int { return c.Workers })),
		fullPrescan:          resolveBool(c, "full-prescan", configVal(cfg, func(c *config.Config) bool { return c.FullPrescan })),
		allowUnsupportedMode: resolveBool(c, "allow-unsupported-mode", configVal(cfg, func(c *config.Config) bool { return c.AllowUnsupportedMode })),
		maxInputBytes:        resolveInt64(c, "max-input-bytes", configVal(cfg, func(c *config.Config) int64 { return c.MaxInputBytes })),
		textfile:             resolveString(c, "metrics-textfile", configVal(cfg, func(c *config.Config) string { return c.Metrics.Textfile })),
	}
	if e.workers < 0 {
		return nil, cli.Exit(fmt.Sprintf("--workers must be >= 0, got %d", e.workers), exitUsage)
	}
	e.collector = metrics.NewCollector(e.backendName(), "", "")
	return e, nil
}

// label replaces the collector with one labeled by the export policy and
// storage backend. Call it before anything is recorded.
func (e *env) label(policyName, storageBackend string) {
	e.collector = metrics.NewCollector(e.backendName(), policyName, storageBackend)
}

// backendName is the backend label used in metrics and traces.
func (e *env) backendName() string {
	if e.backend == "" {
		return engine.DefaultBackend
	}
	return e.backend
}

// decoderOptions returns the options shared by every decoder this
// invocation opens.
func (e *env) decoderOptions(meta *types.SessionMeta) []decoder.Option {
	return append([]decoder.Option{
		decoder.WithLogger(e.logger.ForSession(meta)),
		decoder.WithCollector(e.collector),
	}, e.engineOptions()...)
}

// engineOptions selects and tunes the backend.
func (e *env) engineOptions() []decoder.Option {
	var opts []decoder.Option
	if e.backend != "" {
		opts = append(opts, decoder.WithBackend(e.backend))
	}
	if e.workers > 0 {
		opts = append(opts, decoder.WithWorkers(e.workers))
	}
	if e.fullPrescan {
		opts = append(opts, decoder.WithFullPrescan())
	}
	if e.allowUnsupportedMode {
		opts = append(opts, decoder.WithAllowUnsupportedMode())
	}
	return opts
}

// readInput reads path ("-" for stdin) subject to --max-input-bytes.
func (e *env) readInput(path string) ([]byte, error) {
	data, err := iox.ReadFile(path, e.maxInputBytes)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("read %s: %v", path, err), exitUsage)
	}
	return data, nil
}

// close writes the metrics textfile and flushes the logger.
func (e *env) close() {
	if e.textfile != "" {
		if err := metrics.WriteTextfile(e.textfile, e.collector); err != nil {
			e.logger.Warn("metrics textfile write failed", map[string]any{
				"path":  e.textfile,
				"error": err.Error(),
			})
		}
	}
	_ = e.logger.Sync()
}

// decodeFailed maps a decode error to a command error carrying the error kind.
func decodeFailed(err error) error {
	return cli.Exit(fmt.Sprintf("decode failed (%s): %v", decoder.KindName(err), err), exitDecodeError)
}

// --- Config precedence ---

// loadConfig loads --config if set. A nil config means no file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return nil, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	return cfg, nil
}

// configVal reads a field from cfg, or the zero value when cfg is nil.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// resolveString returns the flag when explicitly set, else the config
// value, else the flag default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) || cfgVal == "" {
		return c.String(name)
	}
	return cfgVal
}

func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Int(name)
	}
	return cfgVal
}

func resolveInt64(c *cli.Context, name string, cfgVal int64) int64 {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Int64(name)
	}
	return cfgVal
}

func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Duration(name)
	}
	return cfgVal
}
