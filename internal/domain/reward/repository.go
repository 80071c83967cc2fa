package reward

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateFunc mutates a ledger in place inside an atomic read-modify-write.
// Returning an error aborts the write.
type UpdateFunc func(l *Ledger) error

// Repository stores student ledgers.
type Repository interface {
	// Get returns the ledger for a student.
	// Returns shared.ErrNotFound when the student has no ledger.
	Get(ctx context.Context, studentID string) (*Ledger, error)

	// Update loads (or creates) the student's ledger, applies fn, and
	// persists the result atomically with respect to concurrent updates of
	// the same student. If fn marks the ledger for purge and it holds no
	// records, the ledger row is deleted instead of written.
	Update(ctx context.Context, studentID string, fn UpdateFunc) (*Ledger, error)

	// All returns every stored ledger. Used by leaderboard aggregation and
	// bulk administrative clears.
	All(ctx context.Context) ([]*Ledger, error)
}
