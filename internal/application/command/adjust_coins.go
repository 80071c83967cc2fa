package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coach-hub/science-coach-hub/internal/domain/leaderboard"
	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
	"github.com/coach-hub/science-coach-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADJUST COINS COMMAND
// Manual admin correction of a student's coin balance. Every nonzero change
// also lands in the ledger as a manual record so subject leaderboards stay
// attributable.
// ══════════════════════════════════════════════════════════════════════════════

// AdjustCoinsCommand contains the data for a manual balance adjustment.
type AdjustCoinsCommand struct {
	// StudentID is the target student. Required.
	StudentID string

	// StudentName optionally refreshes the ledger display name.
	StudentName string

	// Subject attributes the adjustment. Required.
	Subject string

	// Operation is "add" or "remove".
	Operation reward.Operation

	// Amount is the coin amount, always positive.
	Amount int
}

// Validate validates the command.
func (c AdjustCoinsCommand) Validate() error {
	if strings.TrimSpace(c.StudentID) == "" {
		return shared.NewDomainError("command", "adjust_coins", shared.ErrValidation, "student_id is required")
	}
	if strings.TrimSpace(c.Subject) == "" {
		return reward.ErrSubjectRequired
	}
	if c.Amount <= 0 {
		return reward.ErrInvalidAmount
	}
	if c.Operation != reward.OperationAdd && c.Operation != reward.OperationRemove {
		return reward.ErrInvalidOperation
	}
	return nil
}

// AdjustCoinsResult contains the outcome of the adjustment.
type AdjustCoinsResult struct {
	// Delta is the applied signed change; removal against a low balance
	// applies less than requested.
	Delta int

	// NewBalance is the balance after the adjustment.
	NewBalance int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AdjustCoinsHandler handles the AdjustCoinsCommand.
type AdjustCoinsHandler struct {
	ledgers reward.Repository
	cache   leaderboard.Cache
	logger  *logger.Logger
}

// NewAdjustCoinsHandler creates a new AdjustCoinsHandler.
func NewAdjustCoinsHandler(ledgers reward.Repository, cache leaderboard.Cache, log *logger.Logger) *AdjustCoinsHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AdjustCoinsHandler{ledgers: ledgers, cache: cache, logger: log}
}

// Handle executes the adjustment.
func (h *AdjustCoinsHandler) Handle(ctx context.Context, cmd AdjustCoinsCommand) (*AdjustCoinsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	var adjusted reward.AdjustResult
	_, err := h.ledgers.Update(ctx, cmd.StudentID, func(l *reward.Ledger) error {
		if cmd.StudentName != "" {
			l.DisplayName = cmd.StudentName
		}
		var aErr error
		adjusted, aErr = l.Adjust(cmd.Subject, cmd.Operation, cmd.Amount, now)
		return aErr
	})
	if err != nil {
		return nil, fmt.Errorf("adjust_coins: %w", err)
	}

	if adjusted.Delta != 0 && h.cache != nil {
		if cErr := h.cache.Invalidate(ctx); cErr != nil {
			h.logger.Warn("leaderboard cache invalidation failed",
				logger.StudentID(cmd.StudentID),
				logger.Err(cErr))
		}
	}

	h.logger.Info("coins adjusted",
		logger.StudentID(cmd.StudentID),
		logger.Subject(cmd.Subject),
		logger.Int("delta", adjusted.Delta),
		logger.Int("balance", adjusted.NewBalance))

	return &AdjustCoinsResult{Delta: adjusted.Delta, NewBalance: adjusted.NewBalance}, nil
}
