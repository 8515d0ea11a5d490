package domain

import (
	"errors"
	"testing"
)

func TestKeyring_KeyFor(t *testing.T) {
	keyring := NewKeyring(map[ProviderType]string{
		ProviderGroq:        "gsk_test_key",
		ProviderOpenRouter:  "   ", // whitespace-only counts as absent
		ProviderHuggingFace: " hf_test_key ",
	})

	key, err := keyring.KeyFor(ProviderGroq)
	if err != nil {
		t.Fatalf("KeyFor(groq) error = %v", err)
	}
	if key != "gsk_test_key" {
		t.Errorf("KeyFor(groq) = %q, want gsk_test_key", key)
	}

	// Keys are trimmed on load.
	key, err = keyring.KeyFor(ProviderHuggingFace)
	if err != nil {
		t.Fatalf("KeyFor(huggingface) error = %v", err)
	}
	if key != "hf_test_key" {
		t.Errorf("KeyFor(huggingface) = %q, want hf_test_key", key)
	}

	_, err = keyring.KeyFor(ProviderOpenRouter)
	if err == nil {
		t.Fatal("KeyFor(openrouter) succeeded, want AuthError for missing key")
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("KeyFor(openrouter) error = %v, want AuthError", err)
	}
	if authErr.Provider != ProviderOpenRouter {
		t.Errorf("AuthError.Provider = %s, want openrouter", authErr.Provider)
	}
}

func TestKeyringFromEnv(t *testing.T) {
	t.Setenv(EnvGroqAPIKey, "gsk_from_env")
	t.Setenv(EnvOpenRouterAPIKey, "")
	t.Setenv(EnvHuggingFaceAPIKey, "hf_from_env")

	keyring := KeyringFromEnv()

	if !keyring.HasKey(ProviderGroq) {
		t.Error("expected groq key to be configured")
	}
	if keyring.HasKey(ProviderOpenRouter) {
		t.Error("expected openrouter key to be absent")
	}

	configured := keyring.ConfiguredProviders()
	if len(configured) != 2 {
		t.Fatalf("ConfiguredProviders() = %v, want 2 entries", configured)
	}
	if configured[0] != ProviderGroq || configured[1] != ProviderHuggingFace {
		t.Errorf("ConfiguredProviders() = %v, want [groq huggingface]", configured)
	}
}
