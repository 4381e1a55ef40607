package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. CATAPI_API_KEY
const EnvPrefix = "CATAPI"

// Loader reads CatAPISourceConfig from an optional file plus environment.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with defaults registered for every key, so
// that AutomaticEnv can resolve them even when no file is given.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := NewBaseConfig("catapi", "catapi")
	v.SetDefault("name", defaults.Name)
	v.SetDefault("type", defaults.Type)
	v.SetDefault("version", defaults.Version)
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("timeouts.request", defaults.Timeouts.Request)
	v.SetDefault("timeouts.connection", defaults.Timeouts.Connection)
	v.SetDefault("timeouts.idle", defaults.Timeouts.Idle)
	v.SetDefault("timeouts.keep_alive", defaults.Timeouts.KeepAlive)
	v.SetDefault("reliability.rate_limit_per_sec", defaults.Reliability.RateLimitPerSec)
	v.SetDefault("reliability.rate_burst", defaults.Reliability.RateBurst)
	v.SetDefault("security.enable_http2", defaults.Security.EnableHTTP2)
	v.SetDefault("security.tls_skip_verify", defaults.Security.TLSSkipVerify)
	v.SetDefault("observability.enable_metrics", defaults.Observability.EnableMetrics)
	v.SetDefault("observability.enable_tracing", defaults.Observability.EnableTracing)
	v.SetDefault("observability.log_level", defaults.Observability.LogLevel)

	return &Loader{v: v}
}

// Viper exposes the underlying instance so the CLI can bind flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the file at path (skipped when path is empty) and returns the
// merged configuration. Environment variables win over file values.
func (l *Loader) Load(path string) (*CatAPISourceConfig, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg CatAPISourceConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.BaseConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
