// Package progress holds the append-only conversation audit log: one entry
// per completed chat turn, capped and reviewable by admins.
package progress

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded chat exchange.
type Entry struct {
	// ID is a server-assigned identifier used for selective purging.
	ID string `json:"id"`

	// StudentID is the opaque student identity the turn belongs to.
	StudentID string `json:"student_id"`

	// StudentName is the display name at the time of the turn.
	StudentName string `json:"student_name"`

	// LessonSlug is the lesson context of the turn, if any.
	LessonSlug string `json:"lesson_slug"`

	// StudentMessage is the student's message for the turn.
	StudentMessage string `json:"student_message"`

	// AssistantReply is the coach's reply text.
	AssistantReply string `json:"assistant_reply"`

	// ObjectiveKey is set when the turn completed an objective.
	ObjectiveKey string `json:"objective_key,omitempty"`

	// ObjectiveMet records the turn's completion decision.
	ObjectiveMet bool `json:"objective_met"`

	// Tasks is the coach's follow-up task list for the turn, if any.
	Tasks []string `json:"tasks,omitempty"`

	// Token is the progress token reported to the student, if any.
	Token string `json:"token,omitempty"`

	// CoinsAwarded is the coins granted by the turn (zero on repeats and
	// non-completing turns).
	CoinsAwarded int `json:"coins_awarded"`

	// CoinBalance is the student's balance after the turn.
	CoinBalance int `json:"coin_balance"`

	// RecordedAt is when the entry was appended.
	RecordedAt time.Time `json:"recorded_at"`
}

// NewEntry assigns an ID and timestamp to a snapshot of a completed turn.
func NewEntry(snapshot Entry, now time.Time) Entry {
	snapshot.ID = uuid.NewString()
	snapshot.RecordedAt = now
	return snapshot
}
