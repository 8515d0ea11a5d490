package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/externalbrain/expert-bridge/internal/dispatch"
	"github.com/externalbrain/expert-bridge/internal/domain"
)

// ToolHandler registers the bridge's tools on an MCP server. Tool-level
// failures are reported as tool results, never as protocol errors, so the
// calling assistant always gets something it can show the user.
type ToolHandler struct {
	service  BridgeService
	registry *domain.Registry
	logger   *slog.Logger
}

// NewToolHandler creates a new ToolHandler.
func NewToolHandler(service BridgeService, registry *domain.Registry, logger *slog.Logger) *ToolHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolHandler{service: service, registry: registry, logger: logger}
}

// RegisterTools adds ask_expert, compare_experts, and draft_editor to the
// MCP server.
func (h *ToolHandler) RegisterTools(s *server.MCPServer) {
	expertHint := "Expert alias. Available: " + strings.Join(h.registry.Names(), ", ")

	askTool := mcp.NewTool("ask_expert",
		mcp.WithDescription("Ask an external expert model a question, optionally with local files as context. Use this to get a second opinion on code or design."),
		mcp.WithString("expert",
			mcp.Required(),
			mcp.Description(expertHint),
		),
		mcp.WithString("instructions",
			mcp.Required(),
			mcp.Description("The question or task for the expert."),
		),
		mcp.WithArray("files",
			mcp.Description("Paths of local text files to include as context."),
		),
	)
	s.AddTool(askTool, h.handleAskTool)

	compareTool := mcp.NewTool("compare_experts",
		mcp.WithDescription("Ask several expert models the same question concurrently and get all answers side by side."),
		mcp.WithArray("experts",
			mcp.Required(),
			mcp.Description("Expert aliases to consult. Available: "+strings.Join(h.registry.Names(), ", ")),
		),
		mcp.WithString("instructions",
			mcp.Required(),
			mcp.Description("The question or task for the experts."),
		),
		mcp.WithArray("files",
			mcp.Description("Paths of local text files to include as context."),
		),
	)
	s.AddTool(compareTool, h.handleCompareTool)

	draftTool := mcp.NewTool("draft_editor",
		mcp.WithDescription("Ask an expert model to rewrite a file per an instruction. The proposal is written next to the original as <path>.draft; the original is never modified."),
		mcp.WithString("expert",
			mcp.Required(),
			mcp.Description(expertHint),
		),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Path of the file to rewrite."),
		),
		mcp.WithString("instruction",
			mcp.Required(),
			mcp.Description("How the file should be changed."),
		),
		mcp.WithArray("files",
			mcp.Description("Paths of additional files to include as context."),
		),
	)
	s.AddTool(draftTool, h.handleDraftTool)
}

func (h *ToolHandler) handleAskTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	expert, err := stringArg(args, "expert")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	instructions, err := stringArg(args, "instructions")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files, err := stringSliceArg(args, "files")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := h.service.Ask(ctx, expert, instructions, files)
	if result.Err != nil {
		return mcp.NewToolResultError(result.Err.Error()), nil
	}
	return mcp.NewToolResultText(result.Text), nil
}

func (h *ToolHandler) handleCompareTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	experts, err := stringSliceArg(args, "experts")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(experts) == 0 {
		return mcp.NewToolResultError("experts cannot be empty"), nil
	}
	instructions, err := stringArg(args, "instructions")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files, err := stringSliceArg(args, "files")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results := h.service.Compare(ctx, experts, instructions, files)
	return mcp.NewToolResultText(FormatCompareMarkdown(results)), nil
}

func (h *ToolHandler) handleDraftTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	expert, err := stringArg(args, "expert")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := stringArg(args, "target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	instruction, err := stringArg(args, "instruction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files, err := stringSliceArg(args, "files")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	draftPath, err := h.service.Draft(ctx, expert, target, instruction, files)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Draft written to %s (original untouched). Review and apply it yourself.", draftPath)), nil
}

// FormatCompareMarkdown renders comparison results as one markdown section
// per expert, failures included, so the assistant sees every outcome.
func FormatCompareMarkdown(results []dispatch.ExpertResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## Expert: %s\n\n", r.Alias)
		if r.Err != nil {
			fmt.Fprintf(&b, "[Error] %s", r.Err.Error())
			continue
		}
		b.WriteString(r.Text)
	}
	return b.String()
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument %q cannot be empty", key)
	}
	return s, nil
}

// stringSliceArg reads an optional array-of-strings argument. JSON decoding
// hands arrays over as []any.
func stringSliceArg(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an array of strings", key)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q must contain only strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}
