package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
	"github.com/coach-hub/science-coach-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LESSON MANAGEMENT COMMANDS
// Admin CRUD over the lesson catalog, plus bulk import of the legacy
// markdown lesson format.
// ══════════════════════════════════════════════════════════════════════════════

// SaveLessonCommand creates or replaces one lesson.
type SaveLessonCommand struct {
	Lesson lesson.Lesson
}

// Validate validates the command.
func (c SaveLessonCommand) Validate() error {
	return c.Lesson.Validate()
}

// DeleteLessonCommand removes one lesson by ID.
type DeleteLessonCommand struct {
	LessonID string
}

// Validate validates the command.
func (c DeleteLessonCommand) Validate() error {
	if strings.TrimSpace(c.LessonID) == "" {
		return shared.NewDomainError("command", "delete_lesson", shared.ErrValidation, "lesson_id is required")
	}
	return nil
}

// ImportLessonsCommand bulk-imports lessons from the legacy markdown format.
type ImportLessonsCommand struct {
	// Markdown is the legacy "## Lesson:" / "- Objective:" document.
	Markdown string
}

// Validate validates the command.
func (c ImportLessonsCommand) Validate() error {
	if strings.TrimSpace(c.Markdown) == "" {
		return shared.NewDomainError("command", "import_lessons", shared.ErrValidation, "markdown is required")
	}
	return nil
}

// ImportLessonsResult reports how many lessons the import produced.
type ImportLessonsResult struct {
	Imported int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ManageLessonsHandler handles lesson catalog writes.
type ManageLessonsHandler struct {
	lessons lesson.Store
	logger  *logger.Logger
}

// NewManageLessonsHandler creates a new ManageLessonsHandler.
func NewManageLessonsHandler(lessons lesson.Store, log *logger.Logger) *ManageLessonsHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ManageLessonsHandler{lessons: lessons, logger: log}
}

// Save creates or replaces a lesson, filling the slug from the title when
// the caller omits it.
func (h *ManageLessonsHandler) Save(ctx context.Context, cmd SaveLessonCommand) (*lesson.Lesson, error) {
	l := cmd.Lesson
	if l.Slug == "" {
		l.Slug = lesson.Slugify(l.Title)
	}
	if l.ID == "" {
		l.ID = lesson.SanitizeKey(l.Slug)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}

	if err := h.lessons.Save(ctx, l); err != nil {
		return nil, fmt.Errorf("save_lesson: %w", err)
	}

	h.logger.Info("lesson saved",
		logger.String("lesson_id", l.ID),
		logger.Subject(l.Subject))

	return &l, nil
}

// Delete removes a lesson by ID.
func (h *ManageLessonsHandler) Delete(ctx context.Context, cmd DeleteLessonCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := h.lessons.Delete(ctx, cmd.LessonID); err != nil {
		return fmt.Errorf("delete_lesson: %w", err)
	}
	h.logger.Info("lesson deleted", logger.String("lesson_id", cmd.LessonID))
	return nil
}

// Import parses the legacy markdown format and saves every lesson it yields.
func (h *ManageLessonsHandler) Import(ctx context.Context, cmd ImportLessonsCommand) (*ImportLessonsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	parsed := lesson.ParseMarkdown(cmd.Markdown)
	if len(parsed) == 0 {
		return nil, shared.NewDomainError("command", "import_lessons", shared.ErrValidation, "no lessons found in document")
	}

	for _, l := range parsed {
		if err := h.lessons.Save(ctx, l); err != nil {
			return nil, fmt.Errorf("import_lessons: save %s: %w", l.ID, err)
		}
	}

	h.logger.Info("lessons imported", logger.Int("count", len(parsed)))

	return &ImportLessonsResult{Imported: len(parsed)}, nil
}
