// Package memory provides in-memory persistence used by development mode
// and tests. All implementations are safe for concurrent use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
)

// LedgerRepository is the in-memory implementation of reward.Repository.
type LedgerRepository struct {
	mu      sync.Mutex
	ledgers map[string]*reward.Ledger
}

// NewLedgerRepository creates an empty in-memory ledger repository.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{ledgers: make(map[string]*reward.Ledger)}
}

var _ reward.Repository = (*LedgerRepository)(nil)

// Get returns a copy of the ledger for a student.
func (r *LedgerRepository) Get(_ context.Context, studentID string) (*reward.Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.ledgers[studentID]
	if !ok {
		return nil, shared.NewDomainError("reward", "Get", shared.ErrNotFound,
			fmt.Sprintf("no ledger for student %s", studentID))
	}
	return l.Clone(), nil
}

// Update applies fn to the student's ledger under the repository lock.
func (r *LedgerRepository) Update(_ context.Context, studentID string, fn reward.UpdateFunc) (*reward.Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.ledgers[studentID]

	var working *reward.Ledger
	if exists {
		working = stored.Clone()
	} else {
		working = reward.NewLedger(studentID)
	}

	if err := fn(working); err != nil {
		return nil, err
	}

	switch {
	case working.ShouldPurge():
		delete(r.ledgers, studentID)
	case !exists && len(working.Records) == 0 && working.Balance == 0 && working.DisplayName == "":
		// Nothing worth keeping for an untouched new ledger.
	default:
		r.ledgers[studentID] = working.Clone()
	}

	return working, nil
}

// All returns copies of every stored ledger, ordered by student ID for
// deterministic aggregation.
func (r *LedgerRepository) All(_ context.Context) ([]*reward.Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*reward.Ledger, 0, len(r.ledgers))
	for _, l := range r.ledgers {
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}
