// Package config provides the configuration schema, loader, and provider
// registry for the EchoVerse narration service.
package config

// LogLevel controls log verbosity for the EchoVerse server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for EchoVerse.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig holds network and logging settings for the EchoVerse server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use for each
// narration stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	Rewrite ProviderEntry `yaml:"rewrite"`
	Speech  ProviderEntry `yaml:"speech"`
}

// ProviderEntry is the common configuration block shared by both provider
// kinds. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "openai", "gtrans").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`
}

// HistoryConfig controls per-session narration history.
type HistoryConfig struct {
	// MaxRecords bounds each session's history; the oldest record is
	// evicted past the bound. Zero or negative means unbounded.
	MaxRecords int `yaml:"max_records"`
}
