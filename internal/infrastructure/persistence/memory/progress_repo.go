package memory

import (
	"context"
	"sync"

	"github.com/coach-hub/science-coach-hub/internal/domain/progress"
)

// ProgressRepository is the in-memory implementation of progress.Repository.
type ProgressRepository struct {
	mu      sync.Mutex
	entries []progress.Entry
}

// NewProgressRepository creates an empty in-memory progress repository.
func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{}
}

var _ progress.Repository = (*ProgressRepository)(nil)

// Append adds one audit entry.
func (r *ProgressRepository) Append(_ context.Context, entry progress.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// ListRecent returns the newest entries, most recent first.
func (r *ProgressRepository) ListRecent(_ context.Context, limit int) ([]progress.Entry, error) {
	limit = progress.ClampLimit(limit)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.entries)
	if limit > n {
		limit = n
	}
	out := make([]progress.Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

// DeleteByIDs removes the identified entries.
func (r *ProgressRepository) DeleteByIDs(_ context.Context, ids []string) (int, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	removed := 0
	for _, e := range r.entries {
		if wanted[e.ID] {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}

// DeleteAll purges the whole log.
func (r *ProgressRepository) DeleteAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := len(r.entries)
	r.entries = nil
	return removed, nil
}
