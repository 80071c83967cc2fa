// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/coach-hub/science-coach-hub/internal/domain/leaderboard"
	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Subject coin rankings. Served from the cache when warm; a miss falls back
// to a full ledger scan and repopulates the cache.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery contains the leaderboard request parameters.
type GetLeaderboardQuery struct {
	// Subject scopes the ranking; empty ranks by raw balance.
	Subject string

	// Limit is the requested row count, clamped to the allowed range.
	Limit int
}

// GetLeaderboardResult contains the ranked rows.
type GetLeaderboardResult struct {
	Subject string              `json:"subject,omitempty"`
	Entries []leaderboard.Entry `json:"entries"`

	// FromCache marks responses served from the cache layer.
	FromCache bool `json:"-"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardHandler handles the GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	ledgers reward.Repository
	lessons lesson.Store
	cache   leaderboard.Cache
	logger  *logger.Logger
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler. The cache is
// optional; without it every query aggregates from the ledgers.
func NewGetLeaderboardHandler(ledgers reward.Repository, lessons lesson.Store, cache leaderboard.Cache, log *logger.Logger) *GetLeaderboardHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetLeaderboardHandler{ledgers: ledgers, lessons: lessons, cache: cache, logger: log}
}

// Handle executes the leaderboard query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	limit := leaderboard.ClampLimit(q.Limit)

	if h.cache != nil {
		entries, ok, err := h.cache.Top(ctx, q.Subject, limit)
		if err != nil {
			h.logger.Warn("leaderboard cache read failed",
				logger.Subject(q.Subject),
				logger.Err(err))
		} else if ok {
			return &GetLeaderboardResult{Subject: q.Subject, Entries: entries, FromCache: true}, nil
		}
	}

	ledgers, err := h.ledgers.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: load ledgers: %w", err)
	}

	slugSubjects, err := h.slugSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: load lessons: %w", err)
	}

	entries := leaderboard.Build(ledgers, q.Subject, slugSubjects, limit)

	if h.cache != nil {
		// Cache the full page size so later smaller requests hit too.
		full := leaderboard.Build(ledgers, q.Subject, slugSubjects, leaderboard.MaxLimit)
		if err := h.cache.Rebuild(ctx, q.Subject, full); err != nil {
			h.logger.Warn("leaderboard cache rebuild failed",
				logger.Subject(q.Subject),
				logger.Err(err))
		}
	}

	return &GetLeaderboardResult{Subject: q.Subject, Entries: entries}, nil
}

func (h *GetLeaderboardHandler) slugSubjects(ctx context.Context) (map[string]string, error) {
	lessons, err := h.lessons.List(ctx)
	if err != nil {
		return nil, err
	}
	return lesson.NewCatalog(lessons).SubjectMap(), nil
}
