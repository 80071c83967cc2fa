// Package leaderboard builds subject coin leaderboards from reward ledgers.
// Rankings are motivational surface, not spendable truth: totals come from
// per-record subject attribution, so balances shown here can differ from a
// student's raw coin balance after manual adjustments.
package leaderboard

import (
	"sort"

	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// MinLimit is the smallest number of rows a caller can request.
	MinLimit = 1

	// MaxLimit caps a leaderboard page.
	MaxLimit = 50

	// DefaultLimit is used when the caller does not specify a limit.
	DefaultLimit = 10
)

// ClampLimit normalizes a requested row count into [MinLimit, MaxLimit],
// substituting DefaultLimit for zero.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLimit
	case limit < MinLimit:
		return MinLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Entry is one leaderboard row.
type Entry struct {
	// Rank is 1-based; ties share coin counts but not ranks.
	Rank int `json:"rank"`

	// StudentID is the opaque student identity.
	StudentID string `json:"student_id"`

	// DisplayName is the name shown on the board.
	DisplayName string `json:"display_name"`

	// Coins is the subject-attributed coin total.
	Coins int `json:"coins"`
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATION
// ══════════════════════════════════════════════════════════════════════════════

// Build ranks ledgers by subject-attributed coins. An empty subject ranks by
// raw balance. Students with zero or negative totals are excluded. Sorting is
// stable, so equal totals keep the input order of the ledgers.
func Build(ledgers []*reward.Ledger, subject string, slugSubjects map[string]string, limit int) []Entry {
	limit = ClampLimit(limit)

	entries := make([]Entry, 0, len(ledgers))
	for _, l := range ledgers {
		coins := l.SubjectBalance(subject, slugSubjects)
		if coins <= 0 {
			continue
		}
		name := l.DisplayName
		if name == "" {
			name = l.StudentID
		}
		entries = append(entries, Entry{
			StudentID:   l.StudentID,
			DisplayName: name,
			Coins:       coins,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Coins > entries[j].Coins
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
