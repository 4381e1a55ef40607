package config

import "time"

// Credential keys understood by the Cat API source
const (
	CredentialAPIKey  = "api_key"
	CredentialBaseURL = "base_url"
)

// CatAPISourceConfig is the file/env shape of the Cat API source configuration
type CatAPISourceConfig struct {
	BaseConfig `yaml:",inline" json:",inline" mapstructure:",squash"`

	APIKey  string `yaml:"api_key" json:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" json:"base_url" mapstructure:"base_url"`
}

// ToBaseConfig folds APIKey and BaseURL into the credentials map the
// connector reads, leaving explicit credentials untouched when the flat
// fields are empty.
func (c *CatAPISourceConfig) ToBaseConfig() *BaseConfig {
	base := c.BaseConfig
	creds := make(map[string]string, len(c.Security.Credentials)+2)
	for k, v := range c.Security.Credentials {
		creds[k] = v
	}
	base.Security.Credentials = creds

	if c.APIKey != "" {
		base.SetCredential(CredentialAPIKey, c.APIKey)
	}
	if c.BaseURL != "" {
		base.SetCredential(CredentialBaseURL, c.BaseURL)
	}
	if base.Timeouts.Request <= 0 {
		base.Timeouts.Request = 30 * time.Second
	}
	return &base
}
