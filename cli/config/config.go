package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents a smithyrt.yaml configuration file.
// All values are optional and act as defaults for smithyrt flags.
// CLI flags always override config values.
type Config struct {
	Service  string         `yaml:"service"`
	Endpoint EndpointConfig `yaml:"endpoint"`
	Retry    RetryConfig    `yaml:"retry"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Capture  CaptureConfig  `yaml:"capture"`
	Adapter  AdapterConfig  `yaml:"adapter"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// EndpointConfig names the static endpoint requests are sent to.
type EndpointConfig struct {
	URL     string            `yaml:"url"`
	Prefix  string            `yaml:"prefix,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Retry modes.
const (
	RetryModeStandard = "standard"
	RetryModeNever    = "never"
)

// RetryConfig holds retry strategy defaults.
type RetryConfig struct {
	Mode           string            `yaml:"mode"`
	MaxAttempts    *int              `yaml:"max_attempts,omitempty"`
	InitialBackoff Duration          `yaml:"initial_backoff,omitempty"`
	MaxBackoff     Duration          `yaml:"max_backoff,omitempty"`
	TokenBucket    TokenBucketConfig `yaml:"token_bucket"`
}

// TokenBucketConfig tunes retry admission control. Zero values keep the
// bucket defaults.
type TokenBucketConfig struct {
	Enabled          *bool   `yaml:"enabled,omitempty"`
	Capacity         int     `yaml:"capacity,omitempty"`
	RetryCost        int     `yaml:"retry_cost,omitempty"`
	TimeoutRetryCost int     `yaml:"timeout_retry_cost,omitempty"`
	SuccessReward    float64 `yaml:"success_reward,omitempty"`
	RefillRate       float64 `yaml:"refill_rate,omitempty"`
}

// IsEnabled reports whether the bucket applies. Omitted means enabled.
func (t TokenBucketConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// TimeoutsConfig holds operation and per-attempt timeouts.
type TimeoutsConfig struct {
	Operation Duration `yaml:"operation,omitempty"`
	Attempt   Duration `yaml:"attempt,omitempty"`
}

// Auth schemes.
const (
	AuthSchemeNone   = "none"
	AuthSchemeBearer = "bearer"
)

// AuthConfig selects the auth scheme and its identity.
type AuthConfig struct {
	Scheme string `yaml:"scheme"`
	Token  string `yaml:"token,omitempty"`
}

// LogConfig holds logging defaults.
type LogConfig struct {
	Level string `yaml:"level"`
}

// CaptureConfig holds attempt-capture storage defaults.
type CaptureConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Dataset     string `yaml:"dataset,omitempty"`
	Region      string `yaml:"region,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	S3PathStyle bool   `yaml:"s3_path_style,omitempty"`
}

// AdapterConfig holds event adapter defaults.
type AdapterConfig struct {
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Channel  string            `yaml:"channel,omitempty"`
	Encoding string            `yaml:"encoding,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
}

// MetricsConfig holds the prometheus listener address.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
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

// Validate checks enumerated values and numeric ranges. Empty values are
// accepted; they mean "use the default".
func (c *Config) Validate() error {
	var errs []error

	switch c.Retry.Mode {
	case "", RetryModeStandard, RetryModeNever:
	default:
		errs = append(errs, fmt.Errorf("retry.mode: unknown mode %q (want standard or never)", c.Retry.Mode))
	}
	if c.Retry.MaxAttempts != nil && *c.Retry.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be > 0, got %d", *c.Retry.MaxAttempts))
	}
	if c.Retry.MaxBackoff.Duration > 0 && c.Retry.InitialBackoff.Duration > c.Retry.MaxBackoff.Duration {
		errs = append(errs, fmt.Errorf("retry.initial_backoff %s exceeds retry.max_backoff %s",
			c.Retry.InitialBackoff.Duration, c.Retry.MaxBackoff.Duration))
	}
	tb := c.Retry.TokenBucket
	if tb.Capacity < 0 || tb.RetryCost < 0 || tb.TimeoutRetryCost < 0 || tb.SuccessReward < 0 || tb.RefillRate < 0 {
		errs = append(errs, errors.New("retry.token_bucket values must not be negative"))
	}

	switch c.Auth.Scheme {
	case "", AuthSchemeNone:
	case AuthSchemeBearer:
		if c.Auth.Token == "" {
			errs = append(errs, errors.New("auth.token is required for the bearer scheme"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.scheme: unknown scheme %q (want none or bearer)", c.Auth.Scheme))
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	switch c.Capture.Backend {
	case "", "fs", "s3", "memory":
	default:
		errs = append(errs, fmt.Errorf("capture.backend: unknown backend %q (want fs, s3, or memory)", c.Capture.Backend))
	}

	switch c.Adapter.Type {
	case "", "redis", "webhook":
	default:
		errs = append(errs, fmt.Errorf("adapter.type: unknown type %q (want redis or webhook)", c.Adapter.Type))
	}
	switch c.Adapter.Encoding {
	case "", "json", "msgpack":
	default:
		errs = append(errs, fmt.Errorf("adapter.encoding: unknown encoding %q (want json or msgpack)", c.Adapter.Encoding))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}

	return errors.Join(errs...)
}
