// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/externalbrain/expert-bridge/internal/domain"
)

// DefaultGroqBaseURL is the default Groq OpenAI-compatible API endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqClient implements Client for the Groq cloud API.
type GroqClient struct {
	apiKey string
	opts   clientOptions
}

// NewGroqClient creates a new GroqClient with the given API key.
func NewGroqClient(apiKey string, opts ...Option) *GroqClient {
	c := &GroqClient{
		apiKey: apiKey,
		opts:   defaultClientOptions(DefaultGroqBaseURL),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Provider returns the backend identifier.
func (c *GroqClient) Provider() domain.ProviderType {
	return domain.ProviderGroq
}

// groqErrorEnvelope is Groq's OpenAI-style error response.
type groqErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ChatCompletion performs a chat completion request against Groq.
func (c *GroqClient) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	endpoint := c.opts.baseURL + "/chat/completions"

	status, body, err := postChat(ctx, domain.ProviderGroq, c.opts.httpClient, endpoint, c.apiKey, nil, mapWireRequest(req))
	if err != nil {
		return ChatResponse{}, err
	}

	if status != http.StatusOK {
		message := string(body)
		var envelope groqErrorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
			message = envelope.Error.Message
		}
		return ChatResponse{}, classifyStatus(domain.ProviderGroq, status, message)
	}

	var wire wireChatResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return ChatResponse{}, &domain.ProviderError{
			Provider:   domain.ProviderGroq,
			StatusCode: status,
			Message:    fmt.Sprintf("failed to decode response: %v", err),
		}
	}

	return mapWireResponse(wire), nil
}
