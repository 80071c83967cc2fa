package leaderboard

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// Redis-backed implementation lives in infrastructure/persistence/redis.
// ══════════════════════════════════════════════════════════════════════════════

// Cache stores ranked coin totals per subject so reads avoid a full ledger
// scan. It is a best-effort layer: a miss or error falls back to aggregation.
type Cache interface {
	// Top returns up to limit cached rows for a subject, best first.
	// Returns ok=false when the subject has no cached board.
	Top(ctx context.Context, subject string, limit int) (entries []Entry, ok bool, err error)

	// Rebuild replaces the cached board for a subject.
	Rebuild(ctx context.Context, subject string, entries []Entry) error

	// Invalidate drops every cached board. Called after any write that can
	// move coin totals.
	Invalidate(ctx context.Context) error
}
