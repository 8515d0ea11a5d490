package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/externalbrain/expert-bridge/internal/dispatch"
	"github.com/externalbrain/expert-bridge/internal/domain"
)

type stubService struct {
	askFn     func(ctx context.Context, alias, instructions string, files []string) dispatch.ExpertResult
	compareFn func(ctx context.Context, aliases []string, instructions string, files []string) []dispatch.ExpertResult
	draftFn   func(ctx context.Context, alias, targetPath, instruction string, extraFiles []string) (string, error)
}

func (s *stubService) Ask(ctx context.Context, alias, instructions string, files []string) dispatch.ExpertResult {
	return s.askFn(ctx, alias, instructions, files)
}

func (s *stubService) Compare(ctx context.Context, aliases []string, instructions string, files []string) []dispatch.ExpertResult {
	return s.compareFn(ctx, aliases, instructions, files)
}

func (s *stubService) Draft(ctx context.Context, alias, targetPath, instruction string, extraFiles []string) (string, error) {
	return s.draftFn(ctx, alias, targetPath, instruction, extraFiles)
}

func handlerRegistry() *domain.Registry {
	return domain.NewRegistry([]domain.Alias{
		{Name: "glm", Provider: domain.ProviderGroq, ModelID: "zai-org/GLM-4.7"},
		{Name: "kimi", Provider: domain.ProviderOpenRouter, ModelID: "moonshotai/kimi-k2"},
	})
}

func newTestRouter(service BridgeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewBridgeHandler(service, handlerRegistry()).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleAsk_Success(t *testing.T) {
	r := newTestRouter(&stubService{
		askFn: func(_ context.Context, alias, instructions string, files []string) dispatch.ExpertResult {
			if alias != "glm" || instructions != "review" {
				t.Errorf("Ask(%q, %q), unexpected arguments", alias, instructions)
			}
			return dispatch.ExpertResult{Alias: alias, Model: "zai-org/GLM-4.7", Text: "answer", Duration: 1200 * time.Millisecond}
		},
	})

	w := doJSON(t, r, http.MethodPost, "/v1/ask", gin.H{
		"expert":       "glm",
		"instructions": "review",
		"files":        []string{"main.go"},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Expert expertEntry `json:"expert"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Expert.Text != "answer" {
		t.Errorf("Text = %q", resp.Expert.Text)
	}
	if resp.Expert.DurationMS != 1200 {
		t.Errorf("DurationMS = %d, want 1200", resp.Expert.DurationMS)
	}
}

func TestHandleAsk_MissingFields(t *testing.T) {
	r := newTestRouter(&stubService{
		askFn: func(_ context.Context, _, _ string, _ []string) dispatch.ExpertResult {
			t.Fatal("service must not be called on a malformed request")
			return dispatch.ExpertResult{}
		},
	})

	w := doJSON(t, r, http.MethodPost, "/v1/ask", gin.H{"expert": "glm"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"unknown alias", &domain.UnknownAliasError{Alias: "x"}, http.StatusBadRequest, "unknown_alias"},
		{"missing file", &domain.NotFoundError{Path: "/x"}, http.StatusBadRequest, "file_not_found"},
		{"auth", &domain.AuthError{Provider: domain.ProviderGroq}, http.StatusBadGateway, "upstream_auth_error"},
		{"rate limit", &domain.RateLimitError{Provider: domain.ProviderGroq}, http.StatusTooManyRequests, "rate_limited"},
		{"timeout", &domain.TimeoutError{Provider: domain.ProviderGroq}, http.StatusGatewayTimeout, "upstream_timeout"},
		{"provider", &domain.ProviderError{Provider: domain.ProviderGroq, StatusCode: 500}, http.StatusBadGateway, "provider_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubService{
				askFn: func(_ context.Context, _, _ string, _ []string) dispatch.ExpertResult {
					return dispatch.ExpertResult{Alias: "glm", Err: tt.err}
				},
			})

			w := doJSON(t, r, http.MethodPost, "/v1/ask", gin.H{
				"expert":       "glm",
				"instructions": "hi",
			})

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp struct {
				Error struct {
					Type string `json:"type"`
				} `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.Error.Type != tt.wantType {
				t.Errorf("error type = %q, want %q", resp.Error.Type, tt.wantType)
			}
		})
	}
}

func TestHandleCompare_PartialFailure(t *testing.T) {
	r := newTestRouter(&stubService{
		compareFn: func(_ context.Context, aliases []string, _ string, _ []string) []dispatch.ExpertResult {
			return []dispatch.ExpertResult{
				{Alias: "glm", Text: "fine"},
				{Alias: "kimi", Err: &domain.RateLimitError{Provider: domain.ProviderOpenRouter, Message: "slow down"}},
			}
		},
	})

	w := doJSON(t, r, http.MethodPost, "/v1/compare", gin.H{
		"experts":      []string{"glm", "kimi"},
		"instructions": "compare",
	})

	// Per-entry failures do not fail the request.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Experts []expertEntry `json:"experts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Experts) != 2 {
		t.Fatalf("got %d entries, want 2", len(resp.Experts))
	}
	if resp.Experts[0].Text != "fine" || resp.Experts[0].Error != "" {
		t.Errorf("entry 0 = %+v", resp.Experts[0])
	}
	if resp.Experts[1].Error == "" {
		t.Errorf("entry 1 = %+v, want error", resp.Experts[1])
	}
}

func TestHandleCompare_EmptyExperts(t *testing.T) {
	r := newTestRouter(&stubService{
		compareFn: func(_ context.Context, _ []string, _ string, _ []string) []dispatch.ExpertResult {
			t.Fatal("service must not be called with no experts")
			return nil
		},
	})

	w := doJSON(t, r, http.MethodPost, "/v1/compare", gin.H{
		"experts":      []string{},
		"instructions": "compare",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleDraft_Success(t *testing.T) {
	r := newTestRouter(&stubService{
		draftFn: func(_ context.Context, alias, targetPath, instruction string, _ []string) (string, error) {
			return targetPath + ".draft", nil
		},
	})

	w := doJSON(t, r, http.MethodPost, "/v1/draft", gin.H{
		"expert":      "glm",
		"target":      "/tmp/main.go",
		"instruction": "add comments",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		DraftPath string `json:"draft_path"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.DraftPath != "/tmp/main.go.draft" {
		t.Errorf("DraftPath = %q", resp.DraftPath)
	}
}

func TestHandleExperts(t *testing.T) {
	r := newTestRouter(&stubService{})

	w := doJSON(t, r, http.MethodGet, "/v1/experts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Experts []string `json:"experts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Experts) != 2 {
		t.Errorf("Experts = %v, want the two configured aliases", resp.Experts)
	}
}

func TestHandleHealth(t *testing.T) {
	r := newTestRouter(&stubService{})

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Status  string `json:"status"`
		Experts int    `json:"experts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "healthy" || resp.Experts != 2 {
		t.Errorf("health = %+v", resp)
	}
}
