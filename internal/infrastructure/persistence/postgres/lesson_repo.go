package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LESSON STORE
// ══════════════════════════════════════════════════════════════════════════════

// LessonStore is the PostgreSQL implementation of lesson.Store.
type LessonStore struct {
	conn *Connection
}

// NewLessonStore creates a new LessonStore.
func NewLessonStore(conn *Connection) *LessonStore {
	return &LessonStore{conn: conn}
}

var _ lesson.Store = (*LessonStore)(nil)

// List returns every stored lesson in insertion order.
func (s *LessonStore) List(ctx context.Context) ([]lesson.Lesson, error) {
	rows, err := s.conn.Pool().Query(ctx, `
		SELECT id, subject, title, slug, objectives
		FROM catalog_lessons
		ORDER BY subject, title
	`)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	var lessons []lesson.Lesson
	for rows.Next() {
		var l lesson.Lesson
		if err := rows.Scan(&l.ID, &l.Subject, &l.Title, &l.Slug, &l.Objectives); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// Save creates or replaces a lesson.
func (s *LessonStore) Save(ctx context.Context, l lesson.Lesson) error {
	_, err := s.conn.Pool().Exec(ctx, `
		INSERT INTO catalog_lessons (id, subject, title, slug, objectives, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET subject    = EXCLUDED.subject,
		    title      = EXCLUDED.title,
		    slug       = EXCLUDED.slug,
		    objectives = EXCLUDED.objectives,
		    updated_at = EXCLUDED.updated_at
	`, l.ID, l.Subject, l.Title, l.Slug, l.Objectives, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson by ID.
func (s *LessonStore) Delete(ctx context.Context, id string) error {
	tag, err := s.conn.Pool().Exec(ctx, `DELETE FROM catalog_lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("lesson", "Delete", shared.ErrNotFound,
			fmt.Sprintf("lesson %s not found", id))
	}
	return nil
}
