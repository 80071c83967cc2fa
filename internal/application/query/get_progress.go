package query

import (
	"context"
	"fmt"

	"github.com/coach-hub/science-coach-hub/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Admin review of the conversation audit log.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery contains the audit review parameters.
type GetProgressQuery struct {
	// Limit caps the returned entries; clamped to the review maximum.
	Limit int
}

// GetProgressResult contains the newest audit entries, most recent first.
type GetProgressResult struct {
	Entries []progress.Entry `json:"entries"`
}

// GetProgressHandler handles the GetProgressQuery.
type GetProgressHandler struct {
	audit progress.Repository
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(audit progress.Repository) *GetProgressHandler {
	return &GetProgressHandler{audit: audit}
}

// Handle executes the review query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*GetProgressResult, error) {
	entries, err := h.audit.ListRecent(ctx, progress.ClampLimit(q.Limit))
	if err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}
	if entries == nil {
		entries = []progress.Entry{}
	}
	return &GetProgressResult{Entries: entries}, nil
}
