// Package adapter provides implementations for external AI provider integrations.
// It uses the Adapter pattern to abstract provider-specific APIs behind a common interface.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/externalbrain/expert-bridge/internal/domain"
)

const (
	// DefaultTimeout is the default HTTP client timeout for a single attempt.
	DefaultTimeout = 60 * time.Second
)

// Client defines the interface for expert provider adapters.
// All provider implementations must satisfy this interface.
type Client interface {
	// ChatCompletion performs a single chat completion request.
	// Takes a provider-neutral request and returns a normalized response.
	// Failures are mapped into the shared error taxonomy so callers never
	// have to branch on provider-specific envelopes.
	ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// Provider returns the backend this client talks to.
	Provider() domain.ProviderType
}

// Option is a functional option shared by all provider clients.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	referer    string
	title      string
}

// WithBaseURL overrides the provider's API endpoint. Used by tests to point
// a client at a mock server.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout for a single attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.httpClient.Timeout = timeout
	}
}

// WithAttribution sets the OpenRouter attribution headers (HTTP-Referer and
// X-Title). Ignored by the other providers.
func WithAttribution(referer, title string) Option {
	return func(o *clientOptions) {
		o.referer = referer
		o.title = title
	}
}

func defaultClientOptions(baseURL string) clientOptions {
	return clientOptions{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// NewClient constructs the adapter for the given provider type. The provider
// set is closed; an unsupported type is a programming error surfaced as a
// plain error.
func NewClient(provider domain.ProviderType, apiKey string, opts ...Option) (Client, error) {
	switch provider {
	case domain.ProviderGroq:
		return NewGroqClient(apiKey, opts...), nil
	case domain.ProviderOpenRouter:
		return NewOpenRouterClient(apiKey, opts...), nil
	case domain.ProviderHuggingFace:
		return NewHuggingFaceClient(apiKey, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
