package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents a jxlframe.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Backend              string        `yaml:"backend"`
	Workers              int           `yaml:"workers"`
	LogLevel             string        `yaml:"log_level"`
	FullPrescan          bool          `yaml:"full_prescan"`
	AllowUnsupportedMode bool          `yaml:"allow_unsupported_mode"`
	MaxInputBytes        int64         `yaml:"max_input_bytes"`
	Storage              StorageConfig `yaml:"storage"`
	Policy               PolicyConfig  `yaml:"policy"`
	Adapter              AdapterConfig `yaml:"adapter"`
	Server               ServerConfig  `yaml:"server"`
	Metrics              MetricsConfig `yaml:"metrics"`
}

// StorageConfig holds storage defaults from the config file.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	WritePixels *bool  `yaml:"write_pixels,omitempty"`
}

// PolicyConfig holds export policy defaults from the config file.
type PolicyConfig struct {
	Name         string `yaml:"name"`
	BufferFrames int    `yaml:"buffer_frames"`
	BufferBytes  int64  `yaml:"buffer_bytes"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// ServerConfig holds defaults for jxlframe serve.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// MetricsConfig holds metrics output defaults.
type MetricsConfig struct {
	// Textfile is a node-exporter textfile written when a command exits.
	Textfile string `yaml:"textfile"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

var (
	policyNames     = []string{"", "strict", "buffered", "noop"}
	storageBackends = []string{"", "fs", "s3"}
	adapterTypes    = []string{"", "webhook", "redis"}
	logLevels       = []string{"", "debug", "info", "warn", "error"}
)

// Validate reports every enumerated field holding an unknown value.
// Values that only make sense with a matching flag set are checked by
// the command that uses them.
func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed []string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown value %q (allowed: %v)", field, value, allowed[1:]))
	}
	check("policy.name", c.Policy.Name, policyNames)
	check("storage.backend", c.Storage.Backend, storageBackends)
	check("adapter.type", c.Adapter.Type, adapterTypes)
	check("log_level", c.LogLevel, logLevels)

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers: must not be negative, got %d", c.Workers))
	}
	if c.Policy.BufferFrames < 0 || c.Policy.BufferBytes < 0 {
		errs = append(errs, errors.New("policy: buffer limits must not be negative"))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries: must not be negative, got %d", *c.Adapter.Retries))
	}
	return errors.Join(errs...)
}
