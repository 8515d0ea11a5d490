// Package domain contains the core business entities and value objects.
package domain

import (
	"errors"
	"fmt"
)

// The bridge surfaces a fixed error taxonomy regardless of which provider
// produced the failure. Each error is a typed struct so callers can branch
// with errors.As instead of string matching.

// NotFoundError indicates a context file is missing, unreadable, or not a
// regular file.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("file %q not found: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("file %q not found", e.Path)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// UnknownAliasError indicates the requested expert alias is not configured.
type UnknownAliasError struct {
	Alias string
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("unknown expert alias %q", e.Alias)
}

// AuthError indicates a missing or rejected API key for a provider.
type AuthError struct {
	Provider ProviderType
	Message  string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: authentication failed", e.Provider)
}

// RateLimitError indicates the provider returned 429.
type RateLimitError struct {
	Provider ProviderType
	Message  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Message)
}

// TransientNetworkError indicates a transport-level failure (connection
// refused, reset, DNS). The dispatcher may retry once.
type TransientNetworkError struct {
	Provider ProviderType
	Err      error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// TimeoutError indicates a single request attempt exceeded its deadline.
// The dispatcher may retry once.
type TimeoutError struct {
	Provider ProviderType
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out: %v", e.Provider, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ProviderError indicates a non-retryable provider failure (4xx/5xx other
// than auth and rate limit).
type ProviderError struct {
	Provider   ProviderType
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider error [%d]: %s", e.Provider, e.StatusCode, e.Message)
}

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsUnknownAlias checks if an error is an UnknownAliasError.
func IsUnknownAlias(err error) bool {
	var target *UnknownAliasError
	return errors.As(err, &target)
}

// IsAuth checks if an error is an AuthError.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsRateLimit checks if an error is a RateLimitError.
func IsRateLimit(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// IsTimeout checks if an error is a TimeoutError.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// IsRetryable reports whether the dispatcher is allowed to retry the call.
// Only transient network failures and per-attempt timeouts qualify.
func IsRetryable(err error) bool {
	var netErr *TransientNetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var toErr *TimeoutError
	return errors.As(err, &toErr)
}
