package progress

import "context"

// MaxReviewLimit caps how many entries an admin review can request.
const MaxReviewLimit = 200

// ClampLimit normalizes a requested review limit into [1, MaxReviewLimit],
// substituting the maximum for zero and negative values.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxReviewLimit {
		return MaxReviewLimit
	}
	return limit
}

// Repository stores the conversation audit log.
type Repository interface {
	// Append adds an entry to the log.
	Append(ctx context.Context, entry Entry) error

	// ListRecent returns the newest entries, most recent first.
	ListRecent(ctx context.Context, limit int) ([]Entry, error)

	// DeleteByIDs removes the identified entries and reports how many were
	// actually deleted. Unknown IDs are skipped, not an error.
	DeleteByIDs(ctx context.Context, ids []string) (int, error)

	// DeleteAll purges the whole log and reports the number removed.
	DeleteAll(ctx context.Context) (int, error)
}
