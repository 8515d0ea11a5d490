// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables and config.yaml using Viper.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/externalbrain/expert-bridge/internal/domain"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration for the optional HTTP mode.
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Aliases is the expert alias table.
	Aliases []domain.Alias `json:"aliases" mapstructure:"aliases"`

	// Context holds file validation and budget limits.
	Context ContextConfig `json:"context" mapstructure:"context"`

	// Providers holds per-provider transport settings.
	Providers ProvidersConfig `json:"providers" mapstructure:"providers"`

	// Chat holds sampling parameters.
	Chat ChatConfig `json:"chat" mapstructure:"chat"`

	// Logging configuration.
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings; unused in stdio mode.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// ContextConfig holds file context validation limits.
type ContextConfig struct {
	// MaxFileBytes is the per-file content ceiling in bytes.
	MaxFileBytes int `json:"max_file_bytes" mapstructure:"max_file_bytes"`

	// MaxTotalChars is the context budget across all files in one request.
	MaxTotalChars int `json:"max_total_chars" mapstructure:"max_total_chars"`

	// SniffBytes is how much of the file head the binary check inspects.
	SniffBytes int `json:"sniff_bytes" mapstructure:"sniff_bytes"`

	// MaxNonPrintableRatio is the control-byte ratio above which the sniffed
	// head counts as binary.
	MaxNonPrintableRatio float64 `json:"max_non_printable_ratio" mapstructure:"max_non_printable_ratio"`
}

// ProvidersConfig holds provider transport settings.
type ProvidersConfig struct {
	// TimeoutSeconds bounds a single provider attempt.
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`

	// RetryBackoffMillis is the pause before the single allowed retry.
	RetryBackoffMillis int `json:"retry_backoff_millis" mapstructure:"retry_backoff_millis"`

	// GroqBaseURL overrides the Groq endpoint (tests, proxies).
	GroqBaseURL string `json:"groq_base_url" mapstructure:"groq_base_url"`

	// OpenRouterBaseURL overrides the OpenRouter endpoint.
	OpenRouterBaseURL string `json:"openrouter_base_url" mapstructure:"openrouter_base_url"`

	// HuggingFaceBaseURL overrides the Hugging Face router endpoint.
	HuggingFaceBaseURL string `json:"huggingface_base_url" mapstructure:"huggingface_base_url"`

	// Referer and Title are sent to OpenRouter for app attribution.
	Referer string `json:"referer" mapstructure:"referer"`
	Title   string `json:"title" mapstructure:"title"`
}

// ChatConfig holds sampling parameters.
type ChatConfig struct {
	// AskTemperature is used for ask/compare requests.
	AskTemperature float64 `json:"ask_temperature" mapstructure:"ask_temperature"`

	// DraftTemperature is used for file rewrite drafts.
	DraftTemperature float64 `json:"draft_temperature" mapstructure:"draft_temperature"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
// Returns an error if configuration loading fails.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a custom config path.
// This should be used when you need to specify a non-default configuration file path.
// Returns an error if configuration loading fails.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// MustGetConfig returns the singleton Configuration instance.
// It panics if the configuration cannot be loaded.
func MustGetConfig() *Configuration {
	cfg, err := GetConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// ProviderTimeout returns the per-attempt timeout as a duration.
func (c *Configuration) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the retry pause as a duration.
func (c *Configuration) RetryBackoff() time.Duration {
	return time.Duration(c.Providers.RetryBackoffMillis) * time.Millisecond
}

// BaseURLFor returns the configured endpoint override for a provider, empty
// when the adapter default applies.
func (c *Configuration) BaseURLFor(provider domain.ProviderType) string {
	switch provider {
	case domain.ProviderGroq:
		return c.Providers.GroqBaseURL
	case domain.ProviderOpenRouter:
		return c.Providers.OpenRouterBaseURL
	case domain.ProviderHuggingFace:
		return c.Providers.HuggingFaceBaseURL
	default:
		return ""
	}
}

// Validate validates the configuration and returns an error if required fields
// are missing or out of range.
func (c *Configuration) Validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	if len(c.Aliases) == 0 {
		validationErrors = append(validationErrors, "aliases cannot be empty, at least one expert alias is required")
	}

	for i, alias := range c.Aliases {
		if alias.Name == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("aliases[%d].name is required", i))
		}
		if alias.ModelID == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("aliases[%d].model is required", i))
		}
		if !alias.Provider.IsValid() {
			validationErrors = append(validationErrors, fmt.Sprintf(
				"aliases[%d].provider '%s' is invalid, must be one of: groq, openrouter, huggingface",
				i, alias.Provider,
			))
		}
	}

	if c.Context.MaxFileBytes <= 0 {
		validationErrors = append(validationErrors, "context.max_file_bytes must be positive")
	}
	if c.Context.MaxTotalChars <= 0 {
		validationErrors = append(validationErrors, "context.max_total_chars must be positive")
	}
	if c.Context.SniffBytes <= 0 {
		validationErrors = append(validationErrors, "context.sniff_bytes must be positive")
	}
	if c.Context.MaxNonPrintableRatio <= 0 || c.Context.MaxNonPrintableRatio > 1 {
		validationErrors = append(validationErrors, "context.max_non_printable_ratio must be in (0, 1]")
	}

	if c.Providers.TimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "providers.timeout_seconds must be positive")
	}
	if c.Providers.RetryBackoffMillis < 0 {
		validationErrors = append(validationErrors, "providers.retry_backoff_millis cannot be negative")
	}

	if c.Chat.AskTemperature < 0 || c.Chat.AskTemperature > 2 {
		validationErrors = append(validationErrors, "chat.ask_temperature must be between 0 and 2")
	}
	if c.Chat.DraftTemperature < 0 || c.Chat.DraftTemperature > 2 {
		validationErrors = append(validationErrors, "chat.draft_temperature must be between 0 and 2")
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
