// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/externalbrain/expert-bridge/internal/domain"
)

// DefaultHuggingFaceBaseURL is the default HuggingFace inference router endpoint.
const DefaultHuggingFaceBaseURL = "https://router.huggingface.co/v1"

// HuggingFaceClient implements Client for the HuggingFace inference router.
// The router speaks the OpenAI chat format, but its error envelope is
// sometimes a bare {"error": "..."} string rather than the OpenAI object.
type HuggingFaceClient struct {
	apiKey string
	opts   clientOptions
}

// NewHuggingFaceClient creates a new HuggingFaceClient with the given API key.
func NewHuggingFaceClient(apiKey string, opts ...Option) *HuggingFaceClient {
	c := &HuggingFaceClient{
		apiKey: apiKey,
		opts:   defaultClientOptions(DefaultHuggingFaceBaseURL),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Provider returns the backend identifier.
func (c *HuggingFaceClient) Provider() domain.ProviderType {
	return domain.ProviderHuggingFace
}

// ChatCompletion performs a chat completion request against the HuggingFace router.
func (c *HuggingFaceClient) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	endpoint := c.opts.baseURL + "/chat/completions"

	status, body, err := postChat(ctx, domain.ProviderHuggingFace, c.opts.httpClient, endpoint, c.apiKey, nil, mapWireRequest(req))
	if err != nil {
		return ChatResponse{}, err
	}

	if status != http.StatusOK {
		return ChatResponse{}, classifyStatus(domain.ProviderHuggingFace, status, extractHFErrorMessage(body))
	}

	var wire wireChatResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return ChatResponse{}, &domain.ProviderError{
			Provider:   domain.ProviderHuggingFace,
			StatusCode: status,
			Message:    fmt.Sprintf("failed to decode response: %v", err),
		}
	}

	return mapWireResponse(wire), nil
}

// extractHFErrorMessage handles both error envelope shapes the router emits:
// {"error": "message"} and {"error": {"message": "..."}}.
func extractHFErrorMessage(body []byte) string {
	var stringEnvelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &stringEnvelope); err == nil && stringEnvelope.Error != "" {
		return stringEnvelope.Error
	}

	var objectEnvelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &objectEnvelope); err == nil && objectEnvelope.Error.Message != "" {
		return objectEnvelope.Error.Message
	}

	return string(body)
}
