// Package lesson contains the lesson catalog domain model for Science Coach Hub.
// A lesson couples a subject and a set of learning objectives; the catalog is
// a read-only snapshot per request, never mutated by the chat flow.
package lesson

import (
	"sort"
	"strings"

	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Lesson is a single configured lesson with its objectives.
type Lesson struct {
	// ID is the admin-assigned identifier, unique within the catalog.
	ID string

	// Subject groups lessons for leaderboards ("Biology", "Chemistry", ...).
	Subject string

	// Title is the human-readable lesson name.
	Title string

	// Objectives are the learning objectives, one per line in admin input.
	Objectives []string

	// Slug is derived from the title and used as the stable lesson key.
	Slug string
}

// ObjectiveText returns the composite objective wording for the lesson.
// The matcher and the objective key are both derived from this exact string,
// so changing any objective rewords the whole lesson.
func (l Lesson) ObjectiveText() string {
	return strings.Join(l.Objectives, " ")
}

// Validate checks that the lesson is complete enough to coach against.
func (l Lesson) Validate() error {
	if l.ID == "" {
		return shared.NewDomainError("lesson", "validate", shared.ErrValidation, "id is required")
	}
	if l.Subject == "" {
		return shared.NewDomainError("lesson", "validate", shared.ErrValidation, "subject is required")
	}
	if l.Title == "" {
		return shared.NewDomainError("lesson", "validate", shared.ErrValidation, "title is required")
	}
	if len(l.Objectives) == 0 {
		return shared.NewDomainError("lesson", "validate", shared.ErrValidation, "at least one objective is required")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog is an immutable lookup view over the configured lessons.
// Build a new Catalog per request; reloading the lesson store defines a new
// generation and previously resolved lessons stay consistent within a turn.
type Catalog struct {
	lessons []Lesson
	byID    map[string]int
	bySlug  map[string]int
}

// NewCatalog builds a catalog from configured lessons. Lessons without a slug
// get one derived from the title. Invalid lessons are skipped, matching how
// the admin store tolerates partially filled rows.
func NewCatalog(lessons []Lesson) *Catalog {
	c := &Catalog{
		byID:   make(map[string]int),
		bySlug: make(map[string]int),
	}
	for _, l := range lessons {
		if l.Slug == "" {
			l.Slug = Slugify(l.Title)
		}
		if l.Validate() != nil {
			continue
		}
		idx := len(c.lessons)
		c.lessons = append(c.lessons, l)
		if _, dup := c.byID[l.ID]; !dup {
			c.byID[l.ID] = idx
		}
		if _, dup := c.bySlug[l.Slug]; !dup {
			c.bySlug[l.Slug] = idx
		}
	}
	return c
}

// Lessons returns all lessons in catalog order.
func (c *Catalog) Lessons() []Lesson {
	out := make([]Lesson, len(c.lessons))
	copy(out, c.lessons)
	return out
}

// Len returns the number of lessons in the catalog.
func (c *Catalog) Len() int {
	return len(c.lessons)
}

// FindByID returns the lesson with the given ID.
func (c *Catalog) FindByID(id string) (Lesson, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Lesson{}, false
	}
	return c.lessons[idx], true
}

// FindBySlug returns the lesson with the given slug.
func (c *Catalog) FindBySlug(slug string) (Lesson, bool) {
	idx, ok := c.bySlug[slug]
	if !ok {
		return Lesson{}, false
	}
	return c.lessons[idx], true
}

// Resolve finds a lesson by ID first, then by slug. Either argument may be
// empty; both empty never resolves.
func (c *Catalog) Resolve(id, slug string) (Lesson, bool) {
	if id != "" {
		if l, ok := c.FindByID(id); ok {
			return l, true
		}
	}
	if slug != "" {
		if l, ok := c.FindBySlug(slug); ok {
			return l, true
		}
	}
	return Lesson{}, false
}

// Subjects returns the distinct subject names, sorted case-insensitively.
func (c *Catalog) Subjects() []string {
	seen := make(map[string]bool)
	var subjects []string
	for _, l := range c.lessons {
		if !seen[l.Subject] {
			seen[l.Subject] = true
			subjects = append(subjects, l.Subject)
		}
	}
	sort.Slice(subjects, func(i, j int) bool {
		return strings.ToLower(subjects[i]) < strings.ToLower(subjects[j])
	})
	return subjects
}

// SubjectMap returns slug -> subject for every lesson. Reward records that
// predate the explicit subject field are attributed through this map.
func (c *Catalog) SubjectMap() map[string]string {
	m := make(map[string]string, len(c.lessons))
	for _, l := range c.lessons {
		m[l.Slug] = l.Subject
	}
	return m
}

// FormatForPrompt renders the whole catalog as the lesson/objective block
// embedded in the coach system prompt.
func (c *Catalog) FormatForPrompt() string {
	if len(c.lessons) == 0 {
		return "No lessons configured."
	}

	parts := make([]string, 0, len(c.lessons))
	for _, l := range c.lessons {
		objective := l.ObjectiveText()
		if objective == "" {
			objective = "No objective provided."
		}
		parts = append(parts, "Lesson: "+l.Title+"\nObjective: "+objective)
	}
	return strings.Join(parts, "\n\n")
}
