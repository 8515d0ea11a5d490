// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the application.
package domain

// ProviderType identifies one of the supported LLM backends.
// The set is closed: the bridge speaks to exactly these three providers.
type ProviderType string

const (
	ProviderGroq        ProviderType = "groq"
	ProviderOpenRouter  ProviderType = "openrouter"
	ProviderHuggingFace ProviderType = "huggingface"
)

// KnownProviders lists every provider the bridge can dispatch to.
var KnownProviders = []ProviderType{ProviderGroq, ProviderOpenRouter, ProviderHuggingFace}

// IsValid reports whether the provider type is one of the supported backends.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderGroq, ProviderOpenRouter, ProviderHuggingFace:
		return true
	default:
		return false
	}
}

// Alias maps a short human-chosen name to a concrete provider/model pair.
// Aliases are immutable: they are defined once at process start and only
// ever looked up afterwards.
type Alias struct {
	// Name is the short name the caller uses (e.g. "kimi-k2").
	Name string `json:"name" mapstructure:"name"`

	// Provider selects which backend serves this alias.
	Provider ProviderType `json:"provider" mapstructure:"provider"`

	// ModelID is the provider-side model identifier
	// (e.g. "moonshotai/kimi-k2-instruct-0905").
	ModelID string `json:"model_id" mapstructure:"model_id"`
}

// IsValid checks if the alias has all required fields.
func (a *Alias) IsValid() bool {
	return a.Name != "" && a.Provider.IsValid() && a.ModelID != ""
}
