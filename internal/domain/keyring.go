// Package domain contains the core business entities and value objects.
package domain

import (
	"os"
	"strings"
)

// Environment variables holding the per-provider secrets. One secret string
// per provider; the bridge never manages keys beyond reading these.
const (
	EnvGroqAPIKey        = "GROQ_API_KEY"
	EnvOpenRouterAPIKey  = "OPENROUTER_API_KEY"
	EnvHuggingFaceAPIKey = "HUGGINGFACE_API_KEY"
)

// Keyring holds the per-provider API keys, read once at startup and treated
// as read-only for the process lifetime. A missing key is not a startup
// failure: it surfaces as AuthError only when that provider is invoked.
type Keyring struct {
	keys map[ProviderType]string
}

// NewKeyring creates a Keyring from an explicit provider→key map.
// Whitespace-only keys count as absent.
func NewKeyring(keys map[ProviderType]string) *Keyring {
	k := &Keyring{keys: make(map[ProviderType]string, len(keys))}
	for provider, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		k.keys[provider] = key
	}
	return k
}

// KeyringFromEnv reads the per-provider secrets from the process environment.
func KeyringFromEnv() *Keyring {
	return NewKeyring(map[ProviderType]string{
		ProviderGroq:        os.Getenv(EnvGroqAPIKey),
		ProviderOpenRouter:  os.Getenv(EnvOpenRouterAPIKey),
		ProviderHuggingFace: os.Getenv(EnvHuggingFaceAPIKey),
	})
}

// KeyFor returns the API key for a provider, or AuthError when the secret
// was not configured.
func (k *Keyring) KeyFor(provider ProviderType) (string, error) {
	key, ok := k.keys[provider]
	if !ok {
		return "", &AuthError{
			Provider: provider,
			Message:  "API key not configured (set " + envVarFor(provider) + ")",
		}
	}
	return key, nil
}

// HasKey reports whether a secret is configured for the provider.
func (k *Keyring) HasKey(provider ProviderType) bool {
	_, ok := k.keys[provider]
	return ok
}

// ConfiguredProviders returns the providers that have a secret, in the fixed
// KnownProviders order.
func (k *Keyring) ConfiguredProviders() []ProviderType {
	configured := make([]ProviderType, 0, len(k.keys))
	for _, p := range KnownProviders {
		if k.HasKey(p) {
			configured = append(configured, p)
		}
	}
	return configured
}

func envVarFor(provider ProviderType) string {
	switch provider {
	case ProviderGroq:
		return EnvGroqAPIKey
	case ProviderOpenRouter:
		return EnvOpenRouterAPIKey
	case ProviderHuggingFace:
		return EnvHuggingFaceAPIKey
	default:
		return strings.ToUpper(string(provider)) + "_API_KEY"
	}
}
