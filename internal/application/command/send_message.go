// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coach-hub/science-coach-hub/internal/domain/leaderboard"
	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/objective"
	"github.com/coach-hub/science-coach-hub/internal/domain/progress"
	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
	"github.com/coach-hub/science-coach-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEND MESSAGE COMMAND
// One full coaching turn: build the prompt, consult the completion provider,
// decide objective completion, reward, and audit-log the exchange.
// ══════════════════════════════════════════════════════════════════════════════

// TurnMessage is one prior conversation message supplied by the caller.
type TurnMessage struct {
	// Role is the caller's role label; "bot" and "assistant" map to the
	// assistant, anything else to the user.
	Role string

	// Content is the message text.
	Content string
}

// TurnVerdict is the completion provider's parsed answer for one turn.
type TurnVerdict struct {
	Reply        string
	ObjectiveMet bool
	Tasks        []string
}

// CompletionClient is the port to the completion provider.
type CompletionClient interface {
	// Complete runs one coaching turn against the provider.
	Complete(ctx context.Context, systemPrompt string, history []TurnMessage, userMessage string) (*TurnVerdict, error)
}

// SendMessageCommand contains the data for one chat turn.
type SendMessageCommand struct {
	// StudentID is the opaque student identity. Required.
	StudentID string

	// StudentName is the display name to record on the ledger.
	StudentName string

	// LessonID selects the current lesson by ID. One of LessonID or
	// LessonSlug is required.
	LessonID string

	// LessonSlug selects the current lesson by slug when no ID matches.
	LessonSlug string

	// Message is the student's message. Required.
	Message string

	// History is the prior conversation, oldest first.
	History []TurnMessage
}

// Validate validates the command.
func (c SendMessageCommand) Validate() error {
	if strings.TrimSpace(c.StudentID) == "" {
		return shared.NewDomainError("command", "send_message", shared.ErrValidation, "student_id is required")
	}
	if strings.TrimSpace(c.Message) == "" {
		return shared.NewDomainError("command", "send_message", shared.ErrValidation, "message is required")
	}
	if strings.TrimSpace(c.LessonID) == "" && strings.TrimSpace(c.LessonSlug) == "" {
		return shared.NewDomainError("command", "send_message", shared.ErrValidation, "lesson_id or lesson_slug is required")
	}
	return nil
}

// SendMessageResult contains the outcome of one chat turn.
type SendMessageResult struct {
	// Reply is the coach's reply text, possibly annotated when the
	// heuristic overrode the model's verdict.
	Reply string

	// Tasks is the model's optional follow-up task list. Cleared when the
	// heuristic overrode the verdict, since the model planned the tasks
	// believing the objective was still open.
	Tasks []string

	// ObjectiveMet is the composed completion decision for the turn.
	ObjectiveMet bool

	// HeuristicOverride is true when the keyword heuristic met the
	// objective despite a negative model verdict.
	HeuristicOverride bool

	// AlreadyCompleted is true when the objective had been rewarded on an
	// earlier turn.
	AlreadyCompleted bool

	// Token is the progress token for a met objective (new or reused).
	Token string

	// CoinsAwarded is the coins granted by this turn.
	CoinsAwarded int

	// CoinBalance is the student's balance after the turn.
	CoinBalance int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SendMessageConfig tunes the coaching turn.
type SendMessageConfig struct {
	// Persona is the coach persona paragraph of the system prompt.
	Persona string

	// CoinsPerObjective is the reward for a first completion.
	CoinsPerObjective int

	// HistoryLimit caps how many prior messages are sent to the provider.
	HistoryLimit int

	// HeuristicEnabled turns the keyword fallback on.
	HeuristicEnabled bool
}

// DefaultSendMessageConfig returns the standard coaching settings.
func DefaultSendMessageConfig() SendMessageConfig {
	return SendMessageConfig{
		Persona:           DefaultPersona,
		CoinsPerObjective: reward.CoinsPerObjective,
		HistoryLimit:      10,
		HeuristicEnabled:  true,
	}
}

// SendMessageHandler handles the SendMessageCommand.
type SendMessageHandler struct {
	lessons    lesson.Store
	completion CompletionClient
	ledgers    reward.Repository
	audit      progress.Repository
	cache      leaderboard.Cache
	config     SendMessageConfig
	logger     *logger.Logger
}

// NewSendMessageHandler creates a new SendMessageHandler. The audit log and
// leaderboard cache are optional; a nil cache simply skips invalidation.
func NewSendMessageHandler(
	lessons lesson.Store,
	completion CompletionClient,
	ledgers reward.Repository,
	audit progress.Repository,
	cache leaderboard.Cache,
	config SendMessageConfig,
	log *logger.Logger,
) *SendMessageHandler {
	if config.CoinsPerObjective <= 0 {
		config.CoinsPerObjective = reward.CoinsPerObjective
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 10
	}
	if config.Persona == "" {
		config.Persona = DefaultPersona
	}
	if log == nil {
		log = logger.Default()
	}

	return &SendMessageHandler{
		lessons:    lessons,
		completion: completion,
		ledgers:    ledgers,
		audit:      audit,
		cache:      cache,
		config:     config,
		logger:     log,
	}
}

// Handle executes one chat turn. The selected lesson must resolve before any
// provider call; reward and audit writes happen only after a successful
// completion.
func (h *SendMessageHandler) Handle(ctx context.Context, cmd SendMessageCommand) (*SendMessageResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	catalog, err := h.loadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("send_message: load lessons: %w", err)
	}

	current, ok := catalog.Resolve(cmd.LessonID, cmd.LessonSlug)
	if !ok {
		return nil, shared.NewDomainError("command", "send_message", shared.ErrNotFound, "lesson not found")
	}

	systemPrompt := BuildSystemPrompt(h.config.Persona, catalog, current)
	history := normalizeHistory(cmd.History, h.config.HistoryLimit)

	verdict, err := h.completion.Complete(ctx, systemPrompt, history, cmd.Message)
	if err != nil {
		return nil, fmt.Errorf("send_message: completion: %w", err)
	}

	result := &SendMessageResult{
		Reply: verdict.Reply,
		Tasks: verdict.Tasks,
	}

	outcome := objective.Outcome{Met: verdict.ObjectiveMet}
	if h.config.HeuristicEnabled {
		outcome = objective.Evaluate(current.ObjectiveText(), verdict.ObjectiveMet, cmd.Message)
	}
	result.ObjectiveMet = outcome.Met
	result.HeuristicOverride = outcome.HeuristicOverride

	if outcome.HeuristicOverride {
		result.Reply = strings.TrimRight(verdict.Reply, " ") + " You clearly met the objective."
		result.Tasks = nil
	}

	if outcome.Met {
		if err := h.award(ctx, cmd, current, result); err != nil {
			return nil, fmt.Errorf("send_message: award: %w", err)
		}
	}

	if result.Token == "" {
		// Non-rewarding turns still report the current balance.
		if ledger, err := h.ledgers.Get(ctx, cmd.StudentID); err == nil {
			result.CoinBalance = ledger.Balance
		}
	}

	h.appendAudit(ctx, cmd, current, result)

	return result, nil
}

// award runs the idempotent reward write and the cache invalidation that
// follows a balance change.
func (h *SendMessageHandler) award(ctx context.Context, cmd SendMessageCommand, current lesson.Lesson, result *SendMessageResult) error {
	key := objective.Key(current.Slug, current.ObjectiveText())
	now := time.Now().UTC()

	var awarded reward.AwardResult
	_, err := h.ledgers.Update(ctx, cmd.StudentID, func(l *reward.Ledger) error {
		if cmd.StudentName != "" {
			l.DisplayName = cmd.StudentName
		}
		var aErr error
		awarded, aErr = l.AwardObjective(key, current.Slug, current.Subject, current.ObjectiveText(), h.config.CoinsPerObjective, now)
		return aErr
	})
	if err != nil {
		return err
	}

	result.Token = awarded.Token
	result.CoinsAwarded = awarded.CoinsAwarded
	result.CoinBalance = awarded.NewBalance
	result.AlreadyCompleted = awarded.Reused

	if awarded.CoinsAwarded != 0 && h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			h.logger.Warn("leaderboard cache invalidation failed",
				logger.StudentID(cmd.StudentID),
				logger.Err(err))
		}
	}

	return nil
}

// appendAudit records the exchange in the progress log. Best effort: a
// failed append is logged and never fails the turn.
func (h *SendMessageHandler) appendAudit(ctx context.Context, cmd SendMessageCommand, current lesson.Lesson, result *SendMessageResult) {
	if h.audit == nil {
		return
	}

	entry := progress.Entry{
		StudentID:      cmd.StudentID,
		StudentName:    cmd.StudentName,
		LessonSlug:     current.Slug,
		StudentMessage: cmd.Message,
		AssistantReply: result.Reply,
		ObjectiveMet:   result.ObjectiveMet,
		Tasks:          result.Tasks,
		Token:          result.Token,
		CoinsAwarded:   result.CoinsAwarded,
		CoinBalance:    result.CoinBalance,
	}
	if result.ObjectiveMet {
		entry.ObjectiveKey = objective.Key(current.Slug, current.ObjectiveText())
	}

	if err := h.audit.Append(ctx, progress.NewEntry(entry, time.Now().UTC())); err != nil {
		h.logger.Warn("progress log append failed",
			logger.StudentID(cmd.StudentID),
			logger.Err(err))
	}
}

// loadCatalog builds an immutable catalog from the lesson store.
func (h *SendMessageHandler) loadCatalog(ctx context.Context) (*lesson.Catalog, error) {
	lessons, err := h.lessons.List(ctx)
	if err != nil {
		return nil, err
	}
	return lesson.NewCatalog(lessons), nil
}

// normalizeHistory maps caller role labels onto provider roles, drops empty
// messages, and keeps only the newest limit of what remains.
func normalizeHistory(history []TurnMessage, limit int) []TurnMessage {
	out := make([]TurnMessage, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := "user"
		switch strings.ToLower(m.Role) {
		case "bot", "assistant":
			role = "assistant"
		}
		out = append(out, TurnMessage{Role: role, Content: m.Content})
	}

	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
