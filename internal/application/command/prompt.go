package command

import (
	"strings"

	"github.com/coach-hub/science-coach-hub/internal/domain/lesson"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYSTEM PROMPT
// ══════════════════════════════════════════════════════════════════════════════

// DefaultPersona is the coach persona used when none is configured.
const DefaultPersona = "You are a friendly, encouraging science coach for school students. " +
	"Guide the student toward the current lesson objective with short questions and hints. " +
	"Never give the full answer away; help the student reach it themselves."

// promptFormatInstructions pins the provider to the strict JSON contract the
// turn parser expects.
const promptFormatInstructions = "Always answer with a single JSON object and nothing else, " +
	`using exactly this shape: {"reply": "<your reply to the student>", ` +
	`"objective_met": <true only when the student's own words demonstrate the current objective>, ` +
	`"tasks": ["<optional short follow-up tasks>"]}. ` +
	"Set objective_met to true only for genuine demonstrations in the student's message, " +
	"never for guesses, repeats of your hints, or off-topic answers."

// BuildSystemPrompt assembles the turn's system prompt from the persona, the
// full lesson catalog, and the current lesson focus.
func BuildSystemPrompt(persona string, catalog *lesson.Catalog, current lesson.Lesson) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(persona))
	b.WriteString("\n\n")

	b.WriteString("Lesson catalog:\n")
	b.WriteString(catalog.FormatForPrompt())
	b.WriteString("\n\n")

	b.WriteString("Current lesson: ")
	b.WriteString(current.Title)
	b.WriteString("\nCurrent objective: ")
	b.WriteString(current.ObjectiveText())
	b.WriteString("\n\n")

	b.WriteString(promptFormatInstructions)

	return b.String()
}
