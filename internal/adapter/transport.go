// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/externalbrain/expert-bridge/internal/domain"
)

// postChat executes a chat completion POST and returns the raw status code
// and body. Transport-level failures are mapped into the error taxonomy here;
// HTTP status handling is left to the calling adapter because error envelopes
// differ per provider.
func postChat(ctx context.Context, provider domain.ProviderType, httpClient *http.Client, endpoint, apiKey string, extraHeaders map[string]string, wire wireChatRequest) (int, []byte, error) {
	body, err := json.Marshal(wire)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal %s request: %w", provider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	for k, v := range extraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, classifyTransportError(provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &domain.TransientNetworkError{Provider: provider, Err: err}
	}

	return resp.StatusCode, respBody, nil
}

// classifyTransportError maps a failed round trip into the taxonomy:
// deadline/timeout conditions become TimeoutError, everything else at the
// transport level becomes TransientNetworkError.
func classifyTransportError(provider domain.ProviderType, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TimeoutError{Provider: provider, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &domain.TimeoutError{Provider: provider, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.TimeoutError{Provider: provider, Err: err}
	}

	// Caller cancellation is not a provider failure; propagate as-is so the
	// dispatcher can abandon the call without retrying.
	if errors.Is(err, context.Canceled) {
		return err
	}

	return &domain.TransientNetworkError{Provider: provider, Err: err}
}

// classifyStatus maps a non-2xx HTTP status into the taxonomy. The message
// should already be extracted from the provider's error envelope.
func classifyStatus(provider domain.ProviderType, status int, message string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &domain.AuthError{Provider: provider, Message: message}
	case status == http.StatusTooManyRequests:
		return &domain.RateLimitError{Provider: provider, Message: message}
	default:
		return &domain.ProviderError{Provider: provider, StatusCode: status, Message: message}
	}
}
