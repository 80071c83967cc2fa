package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/coach-hub/science-coach-hub/internal/domain/leaderboard"
	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
	"github.com/coach-hub/science-coach-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLEAR REWARDS COMMAND
// Admin reset of a student's earned rewards, optionally scoped to one
// subject. Emptying the ledger removes it entirely.
// ══════════════════════════════════════════════════════════════════════════════

// ClearRewardsCommand contains the data for a reward clear.
type ClearRewardsCommand struct {
	// StudentID is the target student. Required.
	StudentID string

	// Subject scopes the clear; empty clears everything.
	Subject string
}

// Validate validates the command.
func (c ClearRewardsCommand) Validate() error {
	if strings.TrimSpace(c.StudentID) == "" {
		return shared.NewDomainError("command", "clear_rewards", shared.ErrValidation, "student_id is required")
	}
	return nil
}

// ClearRewardsResult contains the outcome of the clear.
type ClearRewardsResult struct {
	// RemovedCount is the number of reward records removed.
	RemovedCount int

	// RemovedCoins is the coin total carried by the removed records.
	RemovedCoins int

	// NewBalance is the balance after the clear, floored at zero.
	NewBalance int

	// LedgerDeleted is true when the clear emptied the ledger.
	LedgerDeleted bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ClearRewardsHandler handles the ClearRewardsCommand.
type ClearRewardsHandler struct {
	ledgers reward.Repository
	lessons lesson.Store
	cache   leaderboard.Cache
	logger  *logger.Logger
}

// NewClearRewardsHandler creates a new ClearRewardsHandler.
func NewClearRewardsHandler(ledgers reward.Repository, lessons lesson.Store, cache leaderboard.Cache, log *logger.Logger) *ClearRewardsHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ClearRewardsHandler{ledgers: ledgers, lessons: lessons, cache: cache, logger: log}
}

// Handle executes the clear. The lesson catalog resolves subjects for old
// records stored without one, so subject-scoped clears catch them too.
func (h *ClearRewardsHandler) Handle(ctx context.Context, cmd ClearRewardsCommand) (*ClearRewardsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	slugSubjects, err := h.slugSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("clear_rewards: load lessons: %w", err)
	}

	var cleared reward.ClearResult
	var deleted bool
	_, err = h.ledgers.Update(ctx, cmd.StudentID, func(l *reward.Ledger) error {
		cleared = l.Clear(cmd.Subject, slugSubjects)
		deleted = l.ShouldPurge()
		return nil
	})
	if err != nil {
		if shared.IsNotFound(err) {
			return &ClearRewardsResult{}, nil
		}
		return nil, fmt.Errorf("clear_rewards: %w", err)
	}

	if cleared.RemovedCount > 0 && h.cache != nil {
		if cErr := h.cache.Invalidate(ctx); cErr != nil {
			h.logger.Warn("leaderboard cache invalidation failed",
				logger.StudentID(cmd.StudentID),
				logger.Err(cErr))
		}
	}

	h.logger.Info("rewards cleared",
		logger.StudentID(cmd.StudentID),
		logger.Subject(cmd.Subject),
		logger.Int("removed", cleared.RemovedCount),
		logger.Bool("ledger_deleted", deleted))

	return &ClearRewardsResult{
		RemovedCount:  cleared.RemovedCount,
		RemovedCoins:  cleared.RemovedCoins,
		NewBalance:    cleared.NewBalance,
		LedgerDeleted: deleted,
	}, nil
}

// slugSubjects builds the slug -> subject map from the current catalog.
func (h *ClearRewardsHandler) slugSubjects(ctx context.Context) (map[string]string, error) {
	lessons, err := h.lessons.List(ctx)
	if err != nil {
		return nil, err
	}
	return lesson.NewCatalog(lessons).SubjectMap(), nil
}
