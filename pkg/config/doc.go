// Package config provides configuration for the Cat API connector and CLI.
//
// Every connector receives a *BaseConfig. Its sections are:
//   - Timeouts: per-request and dial timeouts
//   - Reliability: client-side rate limiting (there are no retries)
//   - Security: credentials (api_key, base_url) and transport flags
//   - Observability: metrics, tracing and log level
//
// # Loading
//
// The CLI loads CatAPISourceConfig through a viper-backed Loader, which
// reads an optional YAML/JSON file and lets CATAPI_* environment variables
// override any key:
//
//	l := config.NewLoader()
//	cfg, err := l.Load("catapi.yaml")
//	base := cfg.ToBaseConfig()
//
// Load and Save are small YAML helpers with ${VAR_NAME} substitution used
// for files the CLI owns, such as the offset state file.
package config
