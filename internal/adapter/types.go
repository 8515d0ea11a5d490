// Package adapter provides implementations for external AI provider integrations.
package adapter

// Provider-neutral request/response types. The dispatcher speaks only these;
// each adapter translates them to its backend's wire format.

// ChatRequest represents a single chat completion request.
type ChatRequest struct {
	// Model is the provider-side model identifier.
	Model string

	// Messages contains the conversation, typically one optional system
	// message carrying the file context followed by the user task.
	Messages []ChatMessage

	// Temperature controls randomness. Optional.
	Temperature *float64

	// MaxTokens limits the response length. Optional.
	MaxTokens *int
}

// ChatMessage represents a single message in the conversation.
type ChatMessage struct {
	// Role is one of: "system", "user", "assistant".
	Role string

	// Content is the message text content.
	Content string
}

// ChatResponse is the normalized result of a completion request.
type ChatResponse struct {
	// Text is the assistant reply, plain text.
	Text string

	// Model is the model the provider reports having used.
	Model string

	// FinishReason indicates why generation stopped ("stop", "length", ...).
	FinishReason string

	// Usage contains token usage statistics when the provider reports them.
	Usage Usage
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ============================================================================
// OpenAI-compatible wire types
// ============================================================================
//
// All three backends (Groq, OpenRouter, HuggingFace router) expose an
// OpenAI-compatible chat completions endpoint, so the wire types are shared.
// Error envelopes differ per provider and live in each adapter file.

type wireChatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

type wireChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// mapWireRequest converts a provider-neutral request to the shared wire format.
func mapWireRequest(req ChatRequest) wireChatRequest {
	wire := wireChatRequest{
		Model:       req.Model,
		Messages:    make([]wireMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, msg := range req.Messages {
		wire.Messages = append(wire.Messages, wireMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return wire
}

// mapWireResponse normalizes the shared wire response. Only the first choice
// is surfaced; the bridge never requests multiple completions.
func mapWireResponse(resp wireChatResponse) ChatResponse {
	out := ChatResponse{
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
		out.FinishReason = resp.Choices[0].FinishReason
	}
	return out
}
