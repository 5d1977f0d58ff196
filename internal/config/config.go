// Package config provides configuration management for protscope.
//
// Config file locations (priority order):
//  1. $PROTSCOPE_CONFIG
//  2. ./protscope.yaml
//  3. ~/.config/protscope/config.yaml
//  4. /etc/protscope/config.yaml
//
// Missing values fall back to defaults; the result is validated before use.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"protscope/internal/validation"
)

const (
	DefaultAddr          = ":3000"
	DefaultUniProtURL    = "https://rest.uniprot.org/uniprotkb"
	DefaultStringURL     = "https://string-db.org/api"
	DefaultSpecies       = 9606
	DefaultMinScore      = 700
	DefaultInteractions  = 50
	DefaultCallerID      = "protscope"
	DefaultMaxCells      = 25_000_000
	DefaultRemoteTimeout = 15 * time.Second
)

var validate = validation.New("yaml")

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes YAML over the defaults and validates the result.
// Keys present in data win even when zero.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Init writes a default config file to path, or to DefaultConfigPath when
// path is empty. An existing file is never overwritten.
func Init(path string) (string, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	if fileExists(path) {
		return path, fmt.Errorf("config already exists: %s", path)
	}
	if err := DefaultConfig().Save(path); err != nil {
		return path, err
	}
	return path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{String: StringConfig{MinScore: DefaultMinScore}}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults.
// string.min_score is seeded by DefaultConfig instead, since 0 is a valid threshold.
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	setDuration(&c.Server.ReadTimeout, 30*time.Second)
	setDuration(&c.Server.WriteTimeout, 60*time.Second)
	setDuration(&c.Server.ShutdownTimeout, 10*time.Second)

	if c.UniProt.BaseURL == "" {
		c.UniProt.BaseURL = DefaultUniProtURL
	}
	if c.UniProt.DefaultFormat == "" {
		c.UniProt.DefaultFormat = "xml"
	}
	setDuration(&c.UniProt.Timeout, DefaultRemoteTimeout)
	c.UniProt.Breaker.applyDefaults()

	if c.String.BaseURL == "" {
		c.String.BaseURL = DefaultStringURL
	}
	if c.String.Species == 0 {
		c.String.Species = DefaultSpecies
	}
	if c.String.Limit == 0 {
		c.String.Limit = DefaultInteractions
	}
	if c.String.CallerIdentity == "" {
		c.String.CallerIdentity = DefaultCallerID
	}
	setDuration(&c.String.Timeout, DefaultRemoteTimeout)
	c.String.Breaker.applyDefaults()

	if c.Alignment.MaxCells == 0 {
		c.Alignment.MaxCells = DefaultMaxCells
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "protscope"
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = "development"
	}
}

func (b *BreakerConfig) applyDefaults() {
	if b.MaxRequests == 0 {
		b.MaxRequests = 5
	}
	setDuration(&b.Interval, 30*time.Second)
	setDuration(&b.Timeout, 60*time.Second)
	if b.FailureThreshold == 0 {
		b.FailureThreshold = 0.8
	}
	if b.MinRequests == 0 {
		b.MinRequests = 5
	}
}

func setDuration(d *Duration, def time.Duration) {
	if *d == 0 {
		*d = Duration(def)
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Listen: %s, Log: %s/%s\n", c.Server.Addr, c.Logging.Level, c.Logging.Format)
	summary += fmt.Sprintf("UniProt: %s (format %s, timeout %s, retries %d)\n",
		c.UniProt.BaseURL, c.UniProt.DefaultFormat, c.UniProt.Timeout.Duration(), c.UniProt.MaxRetries)
	summary += fmt.Sprintf("STRING: %s (species %d, min score %d)\n",
		c.String.BaseURL, c.String.Species, c.String.MinScore)
	summary += fmt.Sprintf("Alignment max cells: %d, Tracing: %v", c.Alignment.MaxCells, c.Tracing.Enabled)
	return summary
}
