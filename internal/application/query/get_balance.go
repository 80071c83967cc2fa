package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET BALANCE QUERY
// One student's coin balance plus a reward history snapshot, newest first.
// ══════════════════════════════════════════════════════════════════════════════

// GetBalanceQuery contains the balance request parameters.
type GetBalanceQuery struct {
	// StudentID is the target student. Required.
	StudentID string

	// Subject optionally adds a subject-attributed total alongside the
	// raw balance.
	Subject string
}

// RewardView is one reward record in API shape.
type RewardView struct {
	Key         string    `json:"key"`
	Token       string    `json:"token,omitempty"`
	LessonSlug  string    `json:"lesson_slug,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Objective   string    `json:"objective"`
	Coins       int       `json:"coins"`
	Manual      bool      `json:"manual,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// GetBalanceResult contains the balance snapshot.
type GetBalanceResult struct {
	StudentID   string `json:"student_id"`
	DisplayName string `json:"display_name,omitempty"`

	// Balance is the raw spendable coin total.
	Balance int `json:"balance"`

	// SubjectCoins is the subject-attributed total, present only when the
	// query named a subject.
	SubjectCoins *int `json:"subject_coins,omitempty"`

	// Rewards is the record history, newest first.
	Rewards []RewardView `json:"rewards"`
}

// GetBalanceHandler handles the GetBalanceQuery.
type GetBalanceHandler struct {
	ledgers reward.Repository
	lessons lesson.Store
}

// NewGetBalanceHandler creates a new GetBalanceHandler.
func NewGetBalanceHandler(ledgers reward.Repository, lessons lesson.Store) *GetBalanceHandler {
	return &GetBalanceHandler{ledgers: ledgers, lessons: lessons}
}

// Handle executes the balance query. A student without a ledger gets an
// empty zero-balance snapshot, not an error.
func (h *GetBalanceHandler) Handle(ctx context.Context, q GetBalanceQuery) (*GetBalanceResult, error) {
	if strings.TrimSpace(q.StudentID) == "" {
		return nil, shared.NewDomainError("query", "get_balance", shared.ErrValidation, "student_id is required")
	}

	ledger, err := h.ledgers.Get(ctx, q.StudentID)
	if err != nil {
		if shared.IsNotFound(err) {
			return &GetBalanceResult{StudentID: q.StudentID, Rewards: []RewardView{}}, nil
		}
		return nil, fmt.Errorf("get_balance: %w", err)
	}

	result := &GetBalanceResult{
		StudentID:   ledger.StudentID,
		DisplayName: ledger.DisplayName,
		Balance:     ledger.Balance,
		Rewards:     make([]RewardView, 0, len(ledger.Records)),
	}

	if q.Subject != "" {
		lessons, lErr := h.lessons.List(ctx)
		if lErr != nil {
			return nil, fmt.Errorf("get_balance: load lessons: %w", lErr)
		}
		coins := ledger.SubjectBalance(q.Subject, lesson.NewCatalog(lessons).SubjectMap())
		result.SubjectCoins = &coins
	}

	for _, r := range ledger.Records {
		result.Rewards = append(result.Rewards, RewardView{
			Key:         r.Key,
			Token:       r.Token,
			LessonSlug:  r.LessonSlug,
			Subject:     r.Subject,
			Objective:   r.Objective,
			Coins:       r.CoinsAwarded,
			Manual:      r.Manual,
			CompletedAt: r.CompletedAt,
		})
	}
	sort.Slice(result.Rewards, func(i, j int) bool {
		return result.Rewards[i].CompletedAt.After(result.Rewards[j].CompletedAt)
	})

	return result, nil
}
