// Package config provides configuration management using the Singleton pattern.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/externalbrain/expert-bridge/internal/domain"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "EXPERT_BRIDGE"
)

// defaultAliases is the built-in expert table, used when the config file
// defines none. Names are what callers type; model ids are provider-side.
var defaultAliases = []domain.Alias{
	{Name: "glm", Provider: domain.ProviderOpenRouter, ModelID: "zhipu/glm-4-flash"},
	{Name: "kimi", Provider: domain.ProviderOpenRouter, ModelID: "moonshotai/kimi-k2"},
	{Name: "minimax", Provider: domain.ProviderOpenRouter, ModelID: "minimax/minimax-01"},
	{Name: "kimi-k2", Provider: domain.ProviderGroq, ModelID: "moonshotai/kimi-k2-instruct-0905"},
	{Name: "hf-minimax", Provider: domain.ProviderHuggingFace, ModelID: "MiniMaxAI/MiniMax-M2.1"},
	{Name: "hf-glm", Provider: domain.ProviderHuggingFace, ModelID: "zai-org/GLM-4.7"},
	{Name: "hf-kimi-thinking", Provider: domain.ProviderHuggingFace, ModelID: "moonshotai/Kimi-K2-Thinking"},
	{Name: "hf-kimi", Provider: domain.ProviderHuggingFace, ModelID: "moonshotai/Kimi-K2-Instruct-0905"},
}

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
// 1. Environment variables (prefixed with EXPERT_BRIDGE_)
// 2. config.yaml
// 3. Default values (built-in alias table included)
//
// Provider API keys are NOT part of this configuration; they come from their
// own environment variables (see domain.KeyringFromEnv) so that secrets never
// land in a config file.
func loadConfig(configPath string) (*Configuration, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/expert-bridge")
		v.AddConfigPath("$HOME/.expert-bridge")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
		// No config file is the normal case: defaults plus env vars suffice.
	} else {
		fmt.Fprintf(os.Stderr, "using config file %s\n", v.ConfigFileUsed())
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	if len(cfg.Aliases) == 0 {
		cfg.Aliases = defaultAliases
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults (HTTP mode only)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Context safety limits
	v.SetDefault("context.max_file_bytes", 512*1024)
	v.SetDefault("context.max_total_chars", 400000)
	v.SetDefault("context.sniff_bytes", 1024)
	v.SetDefault("context.max_non_printable_ratio", 0.30)

	// Provider transport
	v.SetDefault("providers.timeout_seconds", 60)
	v.SetDefault("providers.retry_backoff_millis", 500)
	v.SetDefault("providers.groq_base_url", "")
	v.SetDefault("providers.openrouter_base_url", "")
	v.SetDefault("providers.huggingface_base_url", "")
	v.SetDefault("providers.referer", "https://github.com/externalbrain/expert-bridge")
	v.SetDefault("providers.title", "Expert Bridge")

	// Sampling
	v.SetDefault("chat.ask_temperature", 0.2)
	v.SetDefault("chat.draft_temperature", 0.1)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
