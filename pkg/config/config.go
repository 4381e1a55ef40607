package config

import (
	"fmt"
	"time"
)

// BaseConfig is the configuration structure every connector receives.
// Connector-specific settings travel in Security.Credentials so the
// registry can create any source from the same shape.
type BaseConfig struct {
	// Name identifies the connector instance
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Type specifies the connector type (e.g., "catapi")
	Type string `yaml:"type" json:"type" mapstructure:"type"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version" mapstructure:"version"`

	Timeouts      TimeoutConfig       `yaml:"timeouts" json:"timeouts" mapstructure:"timeouts"`
	Reliability   ReliabilityConfig   `yaml:"reliability" json:"reliability" mapstructure:"reliability"`
	Security      SecurityConfig      `yaml:"security" json:"security" mapstructure:"security"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// TimeoutConfig contains timeout settings.
type TimeoutConfig struct {
	// Request bounds a single HTTP call end to end
	Request time.Duration `yaml:"request" json:"request" mapstructure:"request"`
	// Connection bounds dialing
	Connection time.Duration `yaml:"connection" json:"connection" mapstructure:"connection"`
	// Idle timeout before closing inactive connections
	Idle time.Duration `yaml:"idle" json:"idle" mapstructure:"idle"`
	// KeepAlive interval for TCP keep-alive probes
	KeepAlive time.Duration `yaml:"keep_alive" json:"keep_alive" mapstructure:"keep_alive"`
}

// ReliabilityConfig contains client-side throttling settings. The connector
// never retries on its own; the caller owns retry policy.
type ReliabilityConfig struct {
	// RateLimitPerSec limits outgoing requests per second (0 = unlimited)
	RateLimitPerSec int `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	// RateBurst is the token bucket capacity when rate limiting is on
	RateBurst int `yaml:"rate_burst" json:"rate_burst" mapstructure:"rate_burst"`
}

// SecurityConfig contains authentication settings.
type SecurityConfig struct {
	// EnableHTTP2 negotiates HTTP/2 over TLS when the server offers it
	EnableHTTP2 bool `yaml:"enable_http2" json:"enable_http2" mapstructure:"enable_http2"`
	// TLSSkipVerify disables certificate verification (insecure)
	TLSSkipVerify bool `yaml:"tls_skip_verify" json:"tls_skip_verify" mapstructure:"tls_skip_verify"`
	// Credentials stores connector options such as api_key and base_url
	Credentials map[string]string `yaml:"credentials" json:"credentials" mapstructure:"credentials"`
}

// ObservabilityConfig contains monitoring settings.
type ObservabilityConfig struct {
	// EnableMetrics activates Prometheus metric collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics" mapstructure:"enable_metrics"`
	// EnableTracing activates OpenTelemetry spans
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing" mapstructure:"enable_tracing"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
}

// NewBaseConfig creates a new BaseConfig with defaults suitable for a
// REST source: a 30s request timeout, no rate limiting and HTTP/2 enabled.
//
// Example:
//
//	cfg := config.NewBaseConfig("catapi", "catapi")
//	cfg.Security.Credentials["api_key"] = os.Getenv("CATAPI_API_KEY")
func NewBaseConfig(name, connectorType string) *BaseConfig {
	return &BaseConfig{
		Name:    name,
		Type:    connectorType,
		Version: "1.0.0",
		Timeouts: TimeoutConfig{
			Request:    30 * time.Second,
			Connection: 10 * time.Second,
			Idle:       90 * time.Second,
			KeepAlive:  30 * time.Second,
		},
		Reliability: ReliabilityConfig{
			RateLimitPerSec: 0,
			RateBurst:       1,
		},
		Security: SecurityConfig{
			EnableHTTP2: true,
			Credentials: make(map[string]string),
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			EnableTracing: false,
			LogLevel:      "info",
		},
	}
}

// Validate validates the configuration for correctness.
func (bc *BaseConfig) Validate() error {
	if bc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if bc.Type == "" {
		return fmt.Errorf("type is required")
	}
	if bc.Timeouts.Request < 0 {
		return fmt.Errorf("timeouts.request cannot be negative")
	}
	if bc.Reliability.RateLimitPerSec < 0 {
		return fmt.Errorf("rate_limit_per_sec cannot be negative")
	}
	if bc.Reliability.IsRateLimited() && bc.Reliability.RateBurst <= 0 {
		return fmt.Errorf("rate_burst must be positive when rate limiting is enabled")
	}
	return nil
}

// Credential returns a credential value, or "" when unset.
func (bc *BaseConfig) Credential(key string) string {
	if bc.Security.Credentials == nil {
		return ""
	}
	return bc.Security.Credentials[key]
}

// SetCredential stores a credential, allocating the map on first use.
func (bc *BaseConfig) SetCredential(key, value string) {
	if bc.Security.Credentials == nil {
		bc.Security.Credentials = make(map[string]string)
	}
	bc.Security.Credentials[key] = value
}

// IsRateLimited returns true if rate limiting is enabled
func (r *ReliabilityConfig) IsRateLimited() bool {
	return r.RateLimitPerSec > 0
}

// HasCredentials returns true if credentials are configured
func (s *SecurityConfig) HasCredentials() bool {
	return len(s.Credentials) > 0
}
