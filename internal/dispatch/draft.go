package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/externalbrain/expert-bridge/internal/adapter"
	"github.com/externalbrain/expert-bridge/internal/domain"
)

// DefaultDraftTemperature keeps rewrites close to the original text.
const DefaultDraftTemperature = 0.1

// draftSuffix is appended to the target path; the original file is never
// touched.
const draftSuffix = ".draft"

const draftSystemPrompt = "You are an elite software engineer. " +
	"You rewrite files precisely as instructed. " +
	"Output ONLY the complete new file content. " +
	"Do not add explanations, preambles, or markdown code fences."

// Draft asks an expert to rewrite targetPath per the instruction and writes
// the proposal next to the original as targetPath + ".draft". Extra context
// files are validated and injected the same way ask does it. It returns the
// draft's path.
func (d *Dispatcher) Draft(ctx context.Context, aliasName, targetPath, instruction string, extraFiles []string) (string, error) {
	alias, err := d.registry.Resolve(aliasName)
	if err != nil {
		return "", err
	}

	// The rewrite target must be readable text; a binary or missing target
	// is a hard failure, unlike optional context files.
	target, err := d.validator.Validate(targetPath)
	if err != nil {
		return "", err
	}

	contextBlock, err := d.buildContext(extraFiles)
	if err != nil {
		return "", err
	}

	systemPrompt := draftSystemPrompt
	if contextBlock != "" {
		systemPrompt += "\n\nAdditional project context:\n\n" + contextBlock
	}

	userPrompt := fmt.Sprintf(
		"--- ORIGINAL FILE (%s) ---\n%s\n--- END ORIGINAL FILE ---\n\nInstruction: %s",
		target.Path, target.Content, instruction,
	)

	temperature := d.draftTemperature
	req := adapter.ChatRequest{
		Model: alias.ModelID,
		Messages: []adapter.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: &temperature,
	}

	result := d.invokeDraft(ctx, alias, req)
	if result.Err != nil {
		return "", result.Err
	}

	draftPath := targetPath + draftSuffix
	content := stripCodeFences(result.Text)
	if err := os.WriteFile(draftPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing draft %s: %w", draftPath, err)
	}

	d.logger.Info("draft written",
		slog.String("alias", alias.Name),
		slog.String("target", targetPath),
		slog.String("draft", draftPath),
	)

	return draftPath, nil
}

// invokeDraft mirrors invoke but with a caller-built request, since drafts
// frame the prompt differently from ask/compare.
func (d *Dispatcher) invokeDraft(ctx context.Context, alias domain.Alias, req adapter.ChatRequest) ExpertResult {
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

	resp, err := d.attempt(ctx, client, req)
	if err != nil && domain.IsRetryable(err) {
		select {
		case <-time.After(d.retryBackoff):
		case <-ctx.Done():
			result.Err = ctx.Err()
			return result
		}
		resp, err = d.attempt(ctx, client, req)
	}
	if err != nil {
		result.Err = err
		return result
	}

	result.Text = resp.Text
	result.Usage = resp.Usage
	return result
}

// stripCodeFences removes a single wrapping markdown fence if the model
// ignored the no-fences instruction.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}

	// Drop the opening fence line (which may carry a language tag) and a
	// closing fence if present.
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
