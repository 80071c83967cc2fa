package lesson

import "context"

// Store defines the contract for the admin-managed lesson store.
// Implementations live in the infrastructure layer (PostgreSQL, in-memory).
// The chat flow only reads; create/update/delete are admin operations.
type Store interface {
	// List returns all configured lessons in catalog order.
	List(ctx context.Context) ([]Lesson, error)

	// Save inserts or replaces a lesson by ID.
	Save(ctx context.Context, l Lesson) error

	// Delete removes a lesson by ID. Returns shared.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}
