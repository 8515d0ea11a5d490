package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/externalbrain/expert-bridge/internal/contextfile"
	"github.com/externalbrain/expert-bridge/internal/dispatch"
	"github.com/externalbrain/expert-bridge/internal/domain"
)

// BridgeHandler serves the HTTP API. It is a thin JSON shell over the
// dispatcher; all semantics live below it.
type BridgeHandler struct {
	service  BridgeService
	registry *domain.Registry
	logger   *slog.Logger
}

// BridgeHandlerOption is a functional option for configuring BridgeHandler.
type BridgeHandlerOption func(*BridgeHandler)

// WithHandlerLogger sets a custom logger.
func WithHandlerLogger(logger *slog.Logger) BridgeHandlerOption {
	return func(h *BridgeHandler) {
		h.logger = logger
	}
}

// NewBridgeHandler creates a new BridgeHandler.
func NewBridgeHandler(service BridgeService, registry *domain.Registry, opts ...BridgeHandlerOption) *BridgeHandler {
	h := &BridgeHandler{
		service:  service,
		registry: registry,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// RegisterRoutes wires the API onto a gin engine.
func (h *BridgeHandler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/v1")
	{
		v1.POST("/ask", h.HandleAsk)
		v1.POST("/compare", h.HandleCompare)
		v1.POST("/draft", h.HandleDraft)
		v1.GET("/experts", h.HandleExperts)
	}
	r.GET("/health", h.HandleHealth)
}

type askRequest struct {
	Expert       string   `json:"expert" binding:"required"`
	Instructions string   `json:"instructions" binding:"required"`
	Files        []string `json:"files"`
}

type compareRequest struct {
	Experts      []string `json:"experts" binding:"required"`
	Instructions string   `json:"instructions" binding:"required"`
	Files        []string `json:"files"`
}

type draftRequest struct {
	Expert      string   `json:"expert" binding:"required"`
	Target      string   `json:"target" binding:"required"`
	Instruction string   `json:"instruction" binding:"required"`
	Files       []string `json:"files"`
}

type expertEntry struct {
	Alias      string `json:"alias"`
	Model      string `json:"model,omitempty"`
	Text       string `json:"text,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// HandleAsk handles POST /v1/ask.
func (h *BridgeHandler) HandleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "Invalid request body: "+err.Error())
		return
	}

	result := h.service.Ask(c.Request.Context(), req.Expert, req.Instructions, req.Files)
	if result.Err != nil {
		status, errType := classifyError(result.Err)
		h.sendError(c, status, errType, result.Err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"expert": resultEntry(result),
	})
}

// HandleCompare handles POST /v1/compare. The response always carries one
// entry per requested expert; per-entry failures ride in the entry itself
// rather than failing the request.
func (h *BridgeHandler) HandleCompare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Experts) == 0 {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "experts array cannot be empty")
		return
	}

	results := h.service.Compare(c.Request.Context(), req.Experts, req.Instructions, req.Files)

	entries := make([]expertEntry, len(results))
	for i, r := range results {
		entries[i] = resultEntry(r)
	}

	c.JSON(http.StatusOK, gin.H{"experts": entries})
}

// HandleDraft handles POST /v1/draft.
func (h *BridgeHandler) HandleDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "Invalid request body: "+err.Error())
		return
	}

	draftPath, err := h.service.Draft(c.Request.Context(), req.Expert, req.Target, req.Instruction, req.Files)
	if err != nil {
		status, errType := classifyError(err)
		h.sendError(c, status, errType, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"draft_path": draftPath})
}

// HandleExperts handles GET /v1/experts and lists the configured aliases.
func (h *BridgeHandler) HandleExperts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"experts": h.registry.Names(),
	})
}

// HandleHealth handles GET /health.
func (h *BridgeHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"experts": h.registry.Size(),
	})
}

func resultEntry(r dispatch.ExpertResult) expertEntry {
	entry := expertEntry{
		Alias:      r.Alias,
		Model:      r.Model,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		entry.Error = r.Err.Error()
	} else {
		entry.Text = r.Text
	}
	return entry
}

// classifyError maps the bridge's error taxonomy onto HTTP statuses. Caller
// mistakes are 4xx; provider-side failures surface as gateway errors so
// clients can tell them apart from bridge bugs.
func classifyError(err error) (int, string) {
	switch {
	case domain.IsUnknownAlias(err):
		return http.StatusBadRequest, "unknown_alias"
	case domain.IsNotFound(err):
		return http.StatusBadRequest, "file_not_found"
	case contextfile.IsBinaryFile(err):
		return http.StatusBadRequest, "binary_file"
	case domain.IsAuth(err):
		return http.StatusBadGateway, "upstream_auth_error"
	case domain.IsRateLimit(err):
		return http.StatusTooManyRequests, "rate_limited"
	case domain.IsTimeout(err):
		return http.StatusGatewayTimeout, "upstream_timeout"
	}

	var netErr *domain.TransientNetworkError
	if errors.As(err, &netErr) {
		return http.StatusBadGateway, "upstream_unavailable"
	}
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		return http.StatusBadGateway, "provider_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// sendError sends an error response in a stable JSON envelope.
func (h *BridgeHandler) sendError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"message": message,
			"type":    errType,
		},
	})
}
