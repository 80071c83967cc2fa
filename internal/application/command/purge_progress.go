package command

import (
	"context"
	"fmt"

	"github.com/coach-hub/science-coach-hub/internal/domain/progress"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
	"github.com/coach-hub/science-coach-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PURGE PROGRESS COMMAND
// Admin removal of conversation audit entries, by ID list or wholesale.
// ══════════════════════════════════════════════════════════════════════════════

// PurgeProgressCommand contains the data for an audit log purge.
type PurgeProgressCommand struct {
	// EntryIDs selects entries to remove. Empty with All=false is invalid.
	EntryIDs []string

	// All purges the entire log.
	All bool
}

// Validate validates the command.
func (c PurgeProgressCommand) Validate() error {
	if !c.All && len(c.EntryIDs) == 0 {
		return shared.NewDomainError("command", "purge_progress", shared.ErrValidation, "entry ids or all flag required")
	}
	return nil
}

// PurgeProgressResult reports how many entries were removed.
type PurgeProgressResult struct {
	Removed int
}

// PurgeProgressHandler handles the PurgeProgressCommand.
type PurgeProgressHandler struct {
	audit  progress.Repository
	logger *logger.Logger
}

// NewPurgeProgressHandler creates a new PurgeProgressHandler.
func NewPurgeProgressHandler(audit progress.Repository, log *logger.Logger) *PurgeProgressHandler {
	if log == nil {
		log = logger.Default()
	}
	return &PurgeProgressHandler{audit: audit, logger: log}
}

// Handle executes the purge.
func (h *PurgeProgressHandler) Handle(ctx context.Context, cmd PurgeProgressCommand) (*PurgeProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var removed int
	var err error
	if cmd.All {
		removed, err = h.audit.DeleteAll(ctx)
	} else {
		removed, err = h.audit.DeleteByIDs(ctx, cmd.EntryIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("purge_progress: %w", err)
	}

	h.logger.Info("progress entries purged", logger.Int("removed", removed))

	return &PurgeProgressResult{Removed: removed}, nil
}
