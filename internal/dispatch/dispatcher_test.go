package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/externalbrain/expert-bridge/internal/adapter"
	"github.com/externalbrain/expert-bridge/internal/contextfile"
	"github.com/externalbrain/expert-bridge/internal/domain"
)

type stubClient struct {
	provider domain.ProviderType
	fn       func(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResponse, error)
}

func (s *stubClient) ChatCompletion(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResponse, error) {
	return s.fn(ctx, req)
}

func (s *stubClient) Provider() domain.ProviderType {
	return s.provider
}

func stubFactory(fn func(ctx context.Context, req adapter.ChatRequest) (adapter.ChatResponse, error)) ClientFactory {
	return func(provider domain.ProviderType, apiKey string) (adapter.Client, error) {
		return &stubClient{provider: provider, fn: fn}, nil
	}
}

func testRegistry() *domain.Registry {
	return domain.NewRegistry([]domain.Alias{
		{Name: "glm", Provider: domain.ProviderGroq, ModelID: "zai-org/GLM-4.7"},
		{Name: "kimi", Provider: domain.ProviderOpenRouter, ModelID: "moonshotai/kimi-k2"},
		{Name: "hf-glm", Provider: domain.ProviderHuggingFace, ModelID: "zai-org/GLM-4.7:fireworks-ai"},
	})
}

func testKeyring() *domain.Keyring {
	return domain.NewKeyring(map[domain.ProviderType]string{
		domain.ProviderGroq:        "gsk_test",
		domain.ProviderOpenRouter:  "sk-or-test",
		domain.ProviderHuggingFace: "hf_test",
	})
}

func newTestDispatcher(factory ClientFactory, opts ...DispatcherOption) *Dispatcher {
	base := []DispatcherOption{
		WithClientFactory(factory),
		WithRetryBackoff(0),
	}
	return NewDispatcher(
		testRegistry(),
		testKeyring(),
		contextfile.NewValidator(),
		contextfile.NewFormatter(contextfile.DefaultMaxTotalChars),
		append(base, opts...)...,
	)
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestDispatcher_Ask_Success(t *testing.T) {
	path := writeTempFile(t, "main.go", "package main\n")

	var captured adapter.ChatRequest
	d := newTestDispatcher(stubFactory(func(_ context.Context, req adapter.ChatRequest) (adapter.ChatResponse, error) {
		captured = req
		return adapter.ChatResponse{Text: "looks fine", Model: req.Model}, nil
	}))

	result := d.Ask(context.Background(), "glm", "review this file", []string{path})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Text != "looks fine" {
		t.Errorf("Text = %q, want %q", result.Text, "looks fine")
	}
	if result.Model != "zai-org/GLM-4.7" {
		t.Errorf("Model = %q, want resolved model id", result.Model)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(captured.Messages))
	}
	system := captured.Messages[0]
	if system.Role != "system" {
		t.Errorf("first message role = %q, want system", system.Role)
	}
	if !strings.Contains(system.Content, `<file path=`) {
		t.Errorf("system message missing file context: %q", system.Content)
	}
	if !strings.Contains(system.Content, "package main") {
		t.Errorf("system message missing file content: %q", system.Content)
	}
	if captured.Messages[1].Content != "review this file" {
		t.Errorf("user message = %q", captured.Messages[1].Content)
	}
	if captured.Temperature == nil || *captured.Temperature != DefaultAskTemperature {
		t.Errorf("Temperature = %v, want %v", captured.Temperature, DefaultAskTemperature)
	}
}

func TestDispatcher_Ask_NoFiles(t *testing.T) {
	var captured adapter.ChatRequest
	d := newTestDispatcher(stubFactory(func(_ context.Context, req adapter.ChatRequest) (adapter.ChatResponse, error) {
		captured = req
		return adapter.ChatResponse{Text: "ok"}, nil
	}))

	result := d.Ask(context.Background(), "glm", "general question", nil)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if len(captured.Messages) != 1 {
		t.Fatalf("got %d messages, want a lone user message", len(captured.Messages))
	}
	if captured.Messages[0].Role != "user" {
		t.Errorf("role = %q, want user", captured.Messages[0].Role)
	}
}

func TestDispatcher_Ask_UnknownAlias(t *testing.T) {
	d := newTestDispatcher(stubFactory(func(_ context.Context, _ adapter.ChatRequest) (adapter.ChatResponse, error) {
		t.Fatal("provider must not be called for an unknown alias")
		return adapter.ChatResponse{}, nil
	}))

	result := d.Ask(context.Background(), "nonsense", "hi", nil)
	if !domain.IsUnknownAlias(result.Err) {
		t.Fatalf("err = %v, want UnknownAliasError", result.Err)
	}
	if result.Alias != "nonsense" {
		t.Errorf("Alias = %q, want the requested name", result.Alias)
	}
}

func TestDispatcher_Ask_MissingKey(t *testing.T) {
	d := NewDispatcher(
		testRegistry(),
		domain.NewKeyring(nil),
		contextfile.NewValidator(),
		contextfile.NewFormatter(contextfile.DefaultMaxTotalChars),
		WithClientFactory(stubFactory(func(_ context.Context, _ adapter.ChatRequest) (adapter.ChatResponse, error) {
			t.Fatal("provider must not be called without a key")
			return adapter.ChatResponse{}, nil
		})),
	)

	result := d.Ask(context.Background(), "glm", "hi", nil)
	if !domain.IsAuth(result.Err) {
		t.Fatalf("err = %v, want AuthError", result.Err)
	}
}

func TestDispatcher_Ask_MissingFile(t *testing.T) {
	d := newTestDispatcher(stubFactory(func(_ context.Context, _ adapter.ChatRequest) (adapter.ChatResponse, error) {
		t.Fatal("provider must not be called when context validation fails")
		return adapter.ChatResponse{}, nil
	}))

	result := d.Ask(context.Background(), "glm", "hi", []string{"/no/such/file.go"})
	if !domain.IsNotFound(result.Err) {
		t.Fatalf("err = %v, want NotFoundError", result.Err)
	}
}

func TestDispatcher_Ask_BinaryFileSkipped(t *testing.T) {
	binPath := writeTempFile(t, "blob.bin", "PK\x03\x04\x00\x00binary")
	textPath := writeTempFile(t, "readme.md", "hello")

	var captured adapter.ChatRequest
	d := newTestDispatcher(stubFactory(func(_ context.Context, req adapter.ChatRequest) (adapter.ChatResponse, error) {
		captured = req
		return adapter.ChatResponse{Text: "ok"}, nil
	}))

	result := d.Ask(context.Background(), "glm", "hi", []string{textPath, binPath})
	if result.Err != nil {
		t.Fatalf("binary context file must not fail the operation: %v", result.Err)
	}

	system := captured.Messages[0].Content
	if !strings.Contains(system, "hello") {
		t.Errorf("text file content missing from prompt")
	}
	if !strings.Contains(system, `<skipped path=`) || !strings.Contains(system, "binary content") {
		t.Errorf("binary skip note missing from prompt: %q", system)
	}
	if strings.Contains(system, "PK\x03\x04") {
		t.Errorf("binary bytes leaked into prompt")
	}
}

func TestDispatcher_Ask_RetriesOnceOnTimeout(t *testing.T) {
	var attempts atomic.Int32
	d := newTestDispatcher(stubFactory(func(_ context.Context, _ adapter.ChatRequest) (adapter.ChatResponse, error) {
		if attempts.Add(1) == 1 {
			return adapter.ChatResponse{}, &domain.TimeoutError{Provider: domain.ProviderGroq, Err: context.DeadlineExceeded}
		}
		return adapter.ChatResponse{Text: "second time lucky"}, nil
	}))

	result := d.Ask(context.Background(), "glm", "hi", nil)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	if result.Text != "second time lucky" {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestDispatcher_Ask_SingleRetryOnly(t *testing.T) {
	var attempts atomic.Int32
	d := newTestDispatcher(stubFactory(func(_ context.Context, _ adapter.ChatRequest) (adapter.ChatResponse, error) {
		attempts.Add(1)
		return adapter.ChatResponse{}, &domain.TransientNetworkError{Provider: domain.ProviderGroq, Err: errors.New("connection reset")}
	}))

	result := d.Ask(context.Background(), "glm", "hi", nil)
	if !domain.IsRetryable(result.Err) {
		t.Fatalf("err = %v, want the transient failure surfaced", result.Err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want exactly 2 (one retry)", got)
	}
}

func TestDispatcher_Ask_NoRetryOnProviderError(t *testing.T) {
	var attempts atomic.Int32
	d := newTestDispatcher(stubFactory(func(_ context.Context, _ adapter.ChatRequest) (adapter.ChatResponse, error) {
		attempts.Add(1)
		return adapter.ChatResponse{}, &domain.ProviderError{Provider: domain.ProviderGroq, StatusCode: 400, Message: "bad model"}
	}))

	result := d.Ask(context.Background(), "glm", "hi", nil)
	if result.Err == nil {
		t.Fatal("expected provider error")
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on provider rejection)", got)
	}
}

func TestDispatcher_Ask_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var attempts atomic.Int32
	factory := stubFactory(func(_ context.Context, _ adapter.ChatRequest) (adapter.ChatResponse, error) {
		attempts.Add(1)
		cancel()
		return adapter.ChatResponse{}, &domain.TransientNetworkError{Provider: domain.ProviderGroq, Err: errors.New("reset")}
	})
	d := newTestDispatcher(factory, WithRetryBackoff(time.Minute))

	result := d.Ask(ctx, "glm", "hi", nil)
	if !errors.Is(result.Err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", result.Err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (retry abandoned on cancel)", got)
	}
}

func TestDispatcher_Compare_OneEntryPerAlias(t *testing.T) {
	d := newTestDispatcher(stubFactory(func(_ context.Context, req adapter.ChatRequest) (adapter.ChatResponse, error) {
		if req.Model == "moonshotai/kimi-k2" {
			return adapter.ChatResponse{}, &domain.RateLimitError{Provider: domain.ProviderOpenRouter, Message: "slow down"}
		}
		return adapter.ChatResponse{Text: "answer from " + req.Model}, nil
	}))

	aliases := []string{"glm", "kimi", "hf-glm", "bogus"}
	results := d.Compare(context.Background(), aliases, "compare this", nil)

	if len(results) != len(aliases) {
		t.Fatalf("got %d results, want %d", len(results), len(aliases))
	}
	for i, name := range aliases {
		if results[i].Alias != name {
			t.Errorf("results[%d].Alias = %q, want %q", i, results[i].Alias, name)
		}
	}

	if results[0].Err != nil || results[0].Text == "" {
		t.Errorf("glm entry = %+v, want success", results[0])
	}
	if !domain.IsRateLimit(results[1].Err) {
		t.Errorf("kimi entry err = %v, want RateLimitError", results[1].Err)
	}
	if results[2].Err != nil {
		t.Errorf("hf-glm entry err = %v, want success despite sibling failure", results[2].Err)
	}
	if !domain.IsUnknownAlias(results[3].Err) {
		t.Errorf("bogus entry err = %v, want UnknownAliasError", results[3].Err)
	}
}

func TestDispatcher_Compare_RunsConcurrently(t *testing.T) {
	const n = 3

	var started sync.WaitGroup
	started.Add(n)
	release := make(chan struct{})

	d := newTestDispatcher(stubFactory(func(ctx context.Context, _ adapter.ChatRequest) (adapter.ChatResponse, error) {
		started.Done()
		select {
		case <-release:
			return adapter.ChatResponse{Text: "ok"}, nil
		case <-ctx.Done():
			return adapter.ChatResponse{}, ctx.Err()
		}
	}))

	go func() {
		started.Wait()
		close(release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results := d.Compare(ctx, []string{"glm", "kimi", "hf-glm"}, "hi", nil)
	for i, r := range results {
		if r.Err != nil {
			t.Errorf("results[%d] err = %v; fan-out did not run concurrently", i, r.Err)
		}
	}
}

func TestDispatcher_Compare_SharedContextFailure(t *testing.T) {
	d := newTestDispatcher(stubFactory(func(_ context.Context, _ adapter.ChatRequest) (adapter.ChatResponse, error) {
		t.Fatal("provider must not be called when context validation fails")
		return adapter.ChatResponse{}, nil
	}))

	results := d.Compare(context.Background(), []string{"glm", "kimi"}, "hi", []string{"/missing.go"})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		if !domain.IsNotFound(r.Err) {
			t.Errorf("results[%d].Err = %v, want NotFoundError", i, r.Err)
		}
	}
}
