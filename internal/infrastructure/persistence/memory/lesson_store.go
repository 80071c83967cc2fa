package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
)

// LessonStore is the in-memory implementation of lesson.Store.
type LessonStore struct {
	mu    sync.RWMutex
	byID  map[string]lesson.Lesson
	order []string
}

// NewLessonStore creates a lesson store seeded with the given lessons.
func NewLessonStore(seed ...lesson.Lesson) *LessonStore {
	s := &LessonStore{byID: make(map[string]lesson.Lesson)}
	for _, l := range seed {
		if _, ok := s.byID[l.ID]; !ok {
			s.order = append(s.order, l.ID)
		}
		s.byID[l.ID] = l
	}
	return s
}

var _ lesson.Store = (*LessonStore)(nil)

// List returns all lessons in insertion order.
func (s *LessonStore) List(_ context.Context) ([]lesson.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]lesson.Lesson, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// Save inserts or replaces a lesson by ID.
func (s *LessonStore) Save(_ context.Context, l lesson.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[l.ID]; !ok {
		s.order = append(s.order, l.ID)
	}
	s.byID[l.ID] = l
	return nil
}

// Delete removes a lesson by ID.
func (s *LessonStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return shared.NewDomainError("lesson", "Delete", shared.ErrNotFound,
			fmt.Sprintf("lesson %s not found", id))
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
