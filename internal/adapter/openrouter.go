// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/externalbrain/expert-bridge/internal/domain"
)

// DefaultOpenRouterBaseURL is the default OpenRouter API endpoint.
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient implements Client for the OpenRouter aggregation API.
// OpenRouter asks callers to identify themselves via HTTP-Referer/X-Title
// attribution headers, which is the only wire-level difference from the
// other OpenAI-compatible backends.
type OpenRouterClient struct {
	apiKey string
	opts   clientOptions
}

// NewOpenRouterClient creates a new OpenRouterClient with the given API key.
func NewOpenRouterClient(apiKey string, opts ...Option) *OpenRouterClient {
	c := &OpenRouterClient{
		apiKey: apiKey,
		opts:   defaultClientOptions(DefaultOpenRouterBaseURL),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Provider returns the backend identifier.
func (c *OpenRouterClient) Provider() domain.ProviderType {
	return domain.ProviderOpenRouter
}

// openRouterErrorEnvelope is OpenRouter's error response. The code field is
// numeric, unlike the OpenAI string code.
type openRouterErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// ChatCompletion performs a chat completion request against OpenRouter.
func (c *OpenRouterClient) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	endpoint := c.opts.baseURL + "/chat/completions"

	headers := map[string]string{}
	if c.opts.referer != "" {
		headers["HTTP-Referer"] = c.opts.referer
	}
	if c.opts.title != "" {
		headers["X-Title"] = c.opts.title
	}

	status, body, err := postChat(ctx, domain.ProviderOpenRouter, c.opts.httpClient, endpoint, c.apiKey, headers, mapWireRequest(req))
	if err != nil {
		return ChatResponse{}, err
	}

	if status != http.StatusOK {
		message := string(body)
		var envelope openRouterErrorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		return ChatResponse{}, classifyStatus(domain.ProviderOpenRouter, status, message)
	}

	var wire wireChatResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return ChatResponse{}, &domain.ProviderError{
			Provider:   domain.ProviderOpenRouter,
			StatusCode: status,
			Message:    fmt.Sprintf("failed to decode response: %v", err),
		}
	}

	return mapWireResponse(wire), nil
}
