// Package handler exposes the bridge over its two transports: MCP stdio for
// editor integration and an optional HTTP API.
package handler

import (
	"context"

	"github.com/externalbrain/expert-bridge/internal/dispatch"
)

// BridgeService is the slice of the dispatcher both transports consume.
// Declared here so handlers can be tested against a stub.
type BridgeService interface {
	Ask(ctx context.Context, alias, instructions string, files []string) dispatch.ExpertResult
	Compare(ctx context.Context, aliases []string, instructions string, files []string) []dispatch.ExpertResult
	Draft(ctx context.Context, alias, targetPath, instruction string, extraFiles []string) (string, error)
}
