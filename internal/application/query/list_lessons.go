package query

import (
	"context"
	"fmt"

	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST LESSONS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListLessonsQuery contains the catalog listing parameters.
type ListLessonsQuery struct {
	// Subject filters the listing; empty returns every lesson.
	Subject string
}

// ListLessonsResult contains the catalog.
type ListLessonsResult struct {
	Lessons  []lesson.Lesson `json:"lessons"`
	Subjects []string        `json:"subjects"`
}

// ListLessonsHandler handles the ListLessonsQuery.
type ListLessonsHandler struct {
	lessons lesson.Store
}

// NewListLessonsHandler creates a new ListLessonsHandler.
func NewListLessonsHandler(lessons lesson.Store) *ListLessonsHandler {
	return &ListLessonsHandler{lessons: lessons}
}

// Handle executes the listing.
func (h *ListLessonsHandler) Handle(ctx context.Context, q ListLessonsQuery) (*ListLessonsResult, error) {
	all, err := h.lessons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list_lessons: %w", err)
	}

	catalog := lesson.NewCatalog(all)

	lessons := catalog.Lessons()
	if q.Subject != "" {
		filtered := lessons[:0]
		for _, l := range lessons {
			if l.Subject == q.Subject {
				filtered = append(filtered, l)
			}
		}
		lessons = filtered
	}

	return &ListLessonsResult{
		Lessons:  lessons,
		Subjects: catalog.Subjects(),
	}, nil
}
