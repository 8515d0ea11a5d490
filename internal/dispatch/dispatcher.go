// Package dispatch orchestrates expert requests: it resolves aliases, builds
// the prompt from validated file context, invokes the matching provider
// client, and aggregates results.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/externalbrain/expert-bridge/internal/adapter"
	"github.com/externalbrain/expert-bridge/internal/contextfile"
	"github.com/externalbrain/expert-bridge/internal/domain"
)

const (
	// DefaultCallTimeout bounds a single provider attempt. Enforced per
	// call, not globally, so one slow provider cannot stall the others in
	// a comparison.
	DefaultCallTimeout = 60 * time.Second

	// DefaultRetryBackoff is the pause before the single allowed retry.
	DefaultRetryBackoff = 500 * time.Millisecond

	// DefaultAskTemperature keeps coding answers focused.
	DefaultAskTemperature = 0.2
)

// systemContextHeader frames the injected file context in a system message,
// kept separate from the user's task.
const systemContextHeader = "You are an expert software engineer. " +
	"Below is the relevant project context provided in XML format:\n\n"

// ExpertResult is the outcome of one provider invocation. Exactly one of
// Text or Err is meaningful.
type ExpertResult struct {
	// Alias is the expert name the caller asked for.
	Alias string

	// Model is the resolved provider-side model id, empty when resolution
	// itself failed.
	Model string

	// Text is the normalized reply on success.
	Text string

	// Err is the typed failure, nil on success.
	Err error

	// Duration measures the provider round trip including the retry.
	Duration time.Duration

	// Usage carries token counts when the provider reports them.
	Usage adapter.Usage
}

// ClientFactory builds a provider client for one request. Injected so tests
// can substitute stubs and main can bind configured base URLs.
type ClientFactory func(provider domain.ProviderType, apiKey string) (adapter.Client, error)

// Dispatcher is the top-level orchestrator for ask/compare/draft.
// It holds no per-request state; concurrent use is safe.
type Dispatcher struct {
	registry  *domain.Registry
	keyring   *domain.Keyring
	validator *contextfile.Validator
	formatter *contextfile.Formatter
	newClient ClientFactory
	logger    *slog.Logger

	callTimeout      time.Duration
	retryBackoff     time.Duration
	askTemperature   float64
	draftTemperature float64
}

// DispatcherOption is a functional option for configuring Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithClientFactory overrides how provider clients are constructed.
func WithClientFactory(factory ClientFactory) DispatcherOption {
	return func(d *Dispatcher) {
		d.newClient = factory
	}
}

// WithCallTimeout sets the per-attempt timeout.
func WithCallTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.callTimeout = timeout
		}
	}
}

// WithRetryBackoff sets the pause before the single retry.
func WithRetryBackoff(backoff time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if backoff >= 0 {
			d.retryBackoff = backoff
		}
	}
}

// WithAskTemperature sets the sampling temperature for ask/compare.
func WithAskTemperature(temp float64) DispatcherOption {
	return func(d *Dispatcher) {
		d.askTemperature = temp
	}
}

// WithDraftTemperature sets the sampling temperature for file rewrites.
func WithDraftTemperature(temp float64) DispatcherOption {
	return func(d *Dispatcher) {
		d.draftTemperature = temp
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	registry *domain.Registry,
	keyring *domain.Keyring,
	validator *contextfile.Validator,
	formatter *contextfile.Formatter,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		keyring:   keyring,
		validator: validator,
		formatter: formatter,
		newClient: func(p domain.ProviderType, key string) (adapter.Client, error) {
			return adapter.NewClient(p, key)
		},
		logger:           slog.Default(),
		callTimeout:      DefaultCallTimeout,
		retryBackoff:     DefaultRetryBackoff,
		askTemperature:   DefaultAskTemperature,
		draftTemperature: DefaultDraftTemperature,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Ask resolves the alias, builds the prompt from the given files, and issues
// one provider call (plus at most one retry). The error, if any, is the
// operation's outcome; it never panics past this boundary.
func (d *Dispatcher) Ask(ctx context.Context, aliasName, instructions string, files []string) ExpertResult {
	alias, err := d.registry.Resolve(aliasName)
	if err != nil {
		return ExpertResult{Alias: aliasName, Err: err}
	}

	contextBlock, err := d.buildContext(files)
	if err != nil {
		return ExpertResult{Alias: alias.Name, Model: alias.ModelID, Err: err}
	}

	return d.invoke(ctx, alias, contextBlock, instructions, d.askTemperature)
}

// Compare builds one shared prompt and invokes every resolved expert
// concurrently. It returns exactly one entry per requested alias; a single
// provider's failure never aborts the others. Each goroutine writes its own
// slot, so there is no shared mutable accumulator. Callers must treat the
// result as a set: responses complete out of order.
func (d *Dispatcher) Compare(ctx context.Context, aliasNames []string, instructions string, files []string) []ExpertResult {
	results := make([]ExpertResult, len(aliasNames))

	contextBlock, err := d.buildContext(files)
	if err != nil {
		for i, name := range aliasNames {
			results[i] = ExpertResult{Alias: name, Err: err}
		}
		return results
	}

	var wg sync.WaitGroup
	for i, name := range aliasNames {
		wg.Add(1)
		go func(slot int, aliasName string) {
			defer wg.Done()

			alias, err := d.registry.Resolve(aliasName)
			if err != nil {
				results[slot] = ExpertResult{Alias: aliasName, Err: err}
				return
			}
			results[slot] = d.invoke(ctx, alias, contextBlock, instructions, d.askTemperature)
		}(i, name)
	}
	wg.Wait()

	return results
}

// buildContext validates every candidate file and serializes the accepted
// ones. A missing file fails the whole operation with NotFoundError; binary
// files are skipped with a flagged note, so no unvalidated bytes ever reach
// a provider.
func (d *Dispatcher) buildContext(files []string) (string, error) {
	if len(files) == 0 {
		return "", nil
	}

	contexts := make([]contextfile.FileContext, 0, len(files))
	var skipNotes []string

	for _, path := range files {
		fc, err := d.validator.Validate(path)
		if err != nil {
			if contextfile.IsBinaryFile(err) {
				d.logger.Warn("skipping binary file", slog.String("path", path))
				skipNotes = append(skipNotes, contextfile.SkipNote(path, "binary content"))
				continue
			}
			return "", err
		}
		if fc.Truncated {
			d.logger.Warn("file truncated at size ceiling", slog.String("path", path))
		}
		contexts = append(contexts, fc)
	}

	block := d.formatter.Format(contexts)
	for _, note := range skipNotes {
		if block != "" {
			block += "\n\n"
		}
		block += note
	}

	return block, nil
}

// invoke performs one provider call with the bounded single retry on
// transient/timeout failures.
func (d *Dispatcher) invoke(ctx context.Context, alias domain.Alias, contextBlock, instructions string, temperature float64) ExpertResult {
	start := time.Now()

	result := ExpertResult{Alias: alias.Name, Model: alias.ModelID}

	apiKey, err := d.keyring.KeyFor(alias.Provider)
	if err != nil {
		result.Err = err
		return result
	}

	client, err := d.newClient(alias.Provider, apiKey)
	if err != nil {
		result.Err = err
		return result
	}

	req := adapter.ChatRequest{
		Model:       alias.ModelID,
		Messages:    promptMessages(contextBlock, instructions),
		Temperature: &temperature,
	}

	d.logger.Debug("dispatching expert request",
		slog.String("alias", alias.Name),
		slog.String("provider", string(alias.Provider)),
		slog.String("model", alias.ModelID),
		slog.Int("est_prompt_tokens", estimateTokens(contextBlock)+estimateTokens(instructions)),
	)

	resp, err := d.attempt(ctx, client, req)
	if err != nil && domain.IsRetryable(err) {
		d.logger.Warn("retrying after transient failure",
			slog.String("alias", alias.Name),
			slog.String("error", err.Error()),
		)

		select {
		case <-time.After(d.retryBackoff):
		case <-ctx.Done():
			result.Err = ctx.Err()
			result.Duration = time.Since(start)
			return result
		}

		resp, err = d.attempt(ctx, client, req)
	}

	result.Duration = time.Since(start)
	if err != nil {
		d.logger.Error("expert request failed",
			slog.String("alias", alias.Name),
			slog.String("provider", string(alias.Provider)),
			slog.String("error", err.Error()),
		)
		result.Err = err
		return result
	}

	d.logger.Info("expert request completed",
		slog.String("alias", alias.Name),
		slog.String("provider", string(alias.Provider)),
		slog.Duration("duration", result.Duration),
		slog.Int("total_tokens", resp.Usage.TotalTokens),
	)

	result.Text = resp.Text
	result.Usage = resp.Usage
	return result
}

// attempt runs a single provider call under its own deadline.
func (d *Dispatcher) attempt(ctx context.Context, client adapter.Client, req adapter.ChatRequest) (adapter.ChatResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	return client.ChatCompletion(callCtx, req)
}

// promptMessages assembles the conversation: the file context rides in a
// system message, the task stays a clean user message.
func promptMessages(contextBlock, instructions string) []adapter.ChatMessage {
	messages := make([]adapter.ChatMessage, 0, 2)
	if contextBlock != "" {
		messages = append(messages, adapter.ChatMessage{
			Role:    "system",
			Content: systemContextHeader + contextBlock,
		})
	}
	messages = append(messages, adapter.ChatMessage{
		Role:    "user",
		Content: instructions,
	})
	return messages
}

// estimateTokens is the rough chars/4 heuristic, good enough for logging.
func estimateTokens(s string) int {
	return len(s) / 4
}
