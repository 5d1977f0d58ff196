package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	UniProt   UniProtConfig   `yaml:"uniprot"`
	String    StringConfig    `yaml:"string"`
	Alignment AlignmentConfig `yaml:"alignment"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins,omitempty"`
}

// UniProtConfig configures the protein record source
type UniProtConfig struct {
	BaseURL       string        `yaml:"base_url" validate:"required,url"`
	DefaultFormat string        `yaml:"default_format" validate:"oneof=xml fasta json"`
	Timeout       Duration      `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	Breaker       BreakerConfig `yaml:"breaker"`
}

// StringConfig configures the interaction source
type StringConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	Species        int           `yaml:"species" validate:"gt=0"`
	MinScore       int           `yaml:"min_score" validate:"gte=0,lte=1000"`
	Limit          int           `yaml:"limit" validate:"gte=0"`
	CallerIdentity string        `yaml:"caller_identity"`
	Timeout        Duration      `yaml:"timeout"`
	Breaker        BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes a circuit breaker guarding a remote service
type BreakerConfig struct {
	MaxRequests      uint32   `yaml:"max_requests"`
	Interval         Duration `yaml:"interval"`
	Timeout          Duration `yaml:"timeout"`
	FailureThreshold float64  `yaml:"failure_threshold" validate:"gte=0,lte=1"`
	MinRequests      uint32   `yaml:"min_requests"`
}

// AlignmentConfig bounds alignment work
type AlignmentConfig struct {
	MaxCells int64 `yaml:"max_cells" validate:"gte=0"` // 0 = unbounded
}

// LoggingConfig selects log level and encoding
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// TracingConfig controls OpenTelemetry export
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `yaml:"service_name"`
	Environment string `yaml:"environment"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
