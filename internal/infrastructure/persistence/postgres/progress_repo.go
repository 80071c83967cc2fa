package postgres

import (
	"context"
	"fmt"

	"github.com/coach-hub/science-coach-hub/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository is the PostgreSQL implementation of progress.Repository.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

var _ progress.Repository = (*ProgressRepository)(nil)

// Append adds one audit entry.
func (r *ProgressRepository) Append(ctx context.Context, entry progress.Entry) error {
	_, err := r.conn.Pool().Exec(ctx, `
		INSERT INTO progress_entries
			(id, student_id, student_name, lesson_slug, student_message,
			 assistant_reply, objective_key, objective_met, tasks, token,
			 coins_awarded, coin_balance, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, entry.ID, entry.StudentID, entry.StudentName, entry.LessonSlug,
		entry.StudentMessage, entry.AssistantReply, entry.ObjectiveKey,
		entry.ObjectiveMet, entry.Tasks, entry.Token,
		entry.CoinsAwarded, entry.CoinBalance, entry.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert progress entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries, most recent first.
func (r *ProgressRepository) ListRecent(ctx context.Context, limit int) ([]progress.Entry, error) {
	limit = progress.ClampLimit(limit)

	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id, student_id, student_name, lesson_slug, student_message,
		       assistant_reply, objective_key, objective_met, tasks, token,
		       coins_awarded, coin_balance, recorded_at
		FROM progress_entries
		ORDER BY recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query progress entries: %w", err)
	}
	defer rows.Close()

	entries := make([]progress.Entry, 0, limit)
	for rows.Next() {
		var e progress.Entry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.StudentName, &e.LessonSlug,
			&e.StudentMessage, &e.AssistantReply, &e.ObjectiveKey,
			&e.ObjectiveMet, &e.Tasks, &e.Token,
			&e.CoinsAwarded, &e.CoinBalance, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan progress entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteByIDs removes the identified entries.
func (r *ProgressRepository) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.conn.Pool().Exec(ctx, `DELETE FROM progress_entries WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete progress entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteAll purges the whole log.
func (r *ProgressRepository) DeleteAll(ctx context.Context) (int, error) {
	tag, err := r.conn.Pool().Exec(ctx, `DELETE FROM progress_entries`)
	if err != nil {
		return 0, fmt.Errorf("purge progress entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
