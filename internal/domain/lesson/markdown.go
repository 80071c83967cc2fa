package lesson

import "strings"

// Markdown heading markers for the legacy single-textarea catalog format.
const (
	markdownLessonPrefix    = "## lesson:"
	markdownObjectivePrefix = "- objective:"
)

// legacySubject is assigned to lessons parsed from the markdown fallback,
// which predates per-lesson subjects.
const legacySubject = "General Science"

// ParseMarkdown parses the legacy lessons markdown into lessons:
//
//	## Lesson: Cell Structure
//	- Objective: Explain the function of the nucleus, membrane, and mitochondria.
//
// Lessons keep document order. A lesson without an objective line is kept
// with no objectives and filtered out by catalog validation.
func ParseMarkdown(md string) []Lesson {
	var lessons []Lesson
	var current *Lesson

	for _, line := range strings.FieldsFunc(md, func(r rune) bool { return r == '\n' || r == '\r' }) {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		switch {
		case strings.HasPrefix(lower, markdownLessonPrefix):
			if current != nil {
				lessons = append(lessons, *current)
			}
			title := strings.TrimSpace(trimmed[len(markdownLessonPrefix):])
			slug := Slugify(title)
			current = &Lesson{
				ID:      SanitizeKey(slug),
				Subject: legacySubject,
				Title:   title,
				Slug:    slug,
			}
		case current != nil && strings.HasPrefix(lower, markdownObjectivePrefix):
			objective := strings.TrimSpace(trimmed[len(markdownObjectivePrefix):])
			if objective != "" {
				current.Objectives = append(current.Objectives, objective)
			}
		}
	}

	if current != nil {
		lessons = append(lessons, *current)
	}
	return lessons
}
