// Package reward contains the reward ledger domain model: per-student coin
// balances and the objective reward records that drive subject leaderboards.
//
// Two invariants matter here. First, the automatic flow creates at most one
// record per (student, objective key) — a met objective is rewarded exactly
// once, and repeat completions reuse the original token. Second, the scalar
// coin balance is the source of truth for "what to display", while per-record
// coins are the source of truth for subject-scoped attribution; manual
// adjustments and partial clears may deliberately desync the two.
package reward

import (
	"time"

	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REWARD RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is one earned (or manually adjusted) coin grant.
type Record struct {
	// Key identifies the record within the ledger. Automatic records use the
	// objective key; manual records use a synthetic "manual_" key, so the two
	// families never collide.
	Key string `json:"key"`

	// Token is the progress token handed to the student. Empty for manual
	// adjustments.
	Token string `json:"token"`

	// LessonSlug is the lesson the objective belongs to. Empty for manual
	// adjustments.
	LessonSlug string `json:"lesson_slug"`

	// Subject attributes the coins to a subject leaderboard. May be empty on
	// old automatic records; those resolve through the lesson catalog.
	Subject string `json:"subject"`

	// Objective is the objective wording at award time.
	Objective string `json:"objective"`

	// CoinsAwarded is the signed coin delta this record contributed.
	// Negative only for manual removals.
	CoinsAwarded int `json:"coins_awarded"`

	// CompletedAt is when the record was created.
	CompletedAt time.Time `json:"completed_at"`

	// Manual marks admin adjustments as opposed to earned rewards.
	Manual bool `json:"manual"`
}

// SubjectIn resolves the record's subject, falling back to the slug->subject
// map from the current lesson catalog for records without an explicit
// subject. Returns "" when the subject cannot be resolved.
func (r Record) SubjectIn(slugSubjects map[string]string) string {
	if r.Subject != "" {
		return r.Subject
	}
	if r.LessonSlug != "" {
		return slugSubjects[r.LessonSlug]
	}
	return ""
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// Operation is a manual balance adjustment direction.
type Operation string

const (
	// OperationAdd grants coins.
	OperationAdd Operation = "add"
	// OperationRemove takes coins, flooring the balance at zero.
	OperationRemove Operation = "remove"
)

// CoinsPerObjective is the standard reward for a first objective completion.
const CoinsPerObjective = 10

// manualAdjustmentObjective labels synthetic manual records.
const manualAdjustmentObjective = "Manual coin adjustment"

var (
	// ErrInvalidOperation is returned for an unknown adjustment operation.
	ErrInvalidOperation error = shared.NewDomainError("reward", "adjust", shared.ErrValidation, "operation must be add or remove")

	// ErrInvalidAmount is returned for a non-positive adjustment amount.
	ErrInvalidAmount error = shared.NewDomainError("reward", "adjust", shared.ErrValidation, "amount must be positive")

	// ErrSubjectRequired is returned when a manual adjustment has no subject.
	ErrSubjectRequired error = shared.NewDomainError("reward", "adjust", shared.ErrValidation, "subject is required")
)

// Ledger is the reward state owned by exactly one student identity.
// It is a plain aggregate: mutation methods operate in memory, and the
// repository persists the whole aggregate atomically.
type Ledger struct {
	// StudentID is the owning student identity.
	StudentID string

	// DisplayName is the student's display name, refreshed on writes and
	// used by the leaderboard.
	DisplayName string

	// Balance is the spendable coin total shown to the student.
	Balance int

	// Records maps record key -> record.
	Records map[string]Record

	// purge marks the ledger for deletion once a clear removed its last
	// record. Checked by repositories after mutation.
	purge bool
}

// NewLedger creates an empty ledger for a student.
func NewLedger(studentID string) *Ledger {
	return &Ledger{
		StudentID: studentID,
		Records:   make(map[string]Record),
	}
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	cp := &Ledger{
		StudentID:   l.StudentID,
		DisplayName: l.DisplayName,
		Balance:     l.Balance,
		Records:     make(map[string]Record, len(l.Records)),
	}
	for k, r := range l.Records {
		cp.Records[k] = r
	}
	return cp
}

// ShouldPurge reports whether a clear emptied the ledger entirely.
func (l *Ledger) ShouldPurge() bool {
	return l.purge
}

// ──────────────────────────────────────────────────────────────────────────────
// AUTOMATIC AWARDS
// ──────────────────────────────────────────────────────────────────────────────

// AwardResult is the outcome of an (idempotent) objective award.
type AwardResult struct {
	// Token is the progress token for this objective: freshly minted on
	// first completion, the original token on every repeat.
	Token string

	// CoinsAwarded is the coins granted by this call; zero on repeats.
	CoinsAwarded int

	// NewBalance is the balance after the call.
	NewBalance int

	// Reused is true when the objective had already been rewarded.
	Reused bool
}

// AwardObjective issues the one-time reward for an objective key. If a record
// already exists for the key the existing token is returned with zero coins
// and the current balance — the award is idempotent per objective wording.
func (l *Ledger) AwardObjective(objectiveKey, lessonSlug, subject, objectiveText string, coins int, now time.Time) (AwardResult, error) {
	if existing, ok := l.Records[objectiveKey]; ok {
		return AwardResult{
			Token:      existing.Token,
			NewBalance: l.Balance,
			Reused:     true,
		}, nil
	}

	token, err := MintToken()
	if err != nil {
		return AwardResult{}, err
	}

	l.Balance += coins
	l.Records[objectiveKey] = Record{
		Key:          objectiveKey,
		Token:        token,
		LessonSlug:   lessonSlug,
		Subject:      subject,
		Objective:    objectiveText,
		CoinsAwarded: coins,
		CompletedAt:  now,
	}

	return AwardResult{
		Token:        token,
		CoinsAwarded: coins,
		NewBalance:   l.Balance,
	}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// MANUAL ADJUSTMENTS
// ──────────────────────────────────────────────────────────────────────────────

// AdjustResult is the outcome of a manual balance adjustment.
type AdjustResult struct {
	// Delta is the applied signed change; a remove against a low balance
	// applies less than requested because the balance floors at zero.
	Delta int

	// NewBalance is the balance after the adjustment.
	NewBalance int
}

// Adjust applies a manual add/remove of coins. Removal floors the balance at
// zero. Every nonzero adjustment also appends a synthetic manual record
// carrying the signed delta, so subject-scoped aggregation stays consistent
// with the visible total.
func (l *Ledger) Adjust(subject string, op Operation, amount int, now time.Time) (AdjustResult, error) {
	if subject == "" {
		return AdjustResult{}, ErrSubjectRequired
	}
	if amount <= 0 {
		return AdjustResult{}, ErrInvalidAmount
	}

	var newBalance int
	switch op {
	case OperationAdd:
		newBalance = l.Balance + amount
	case OperationRemove:
		newBalance = l.Balance - amount
		if newBalance < 0 {
			newBalance = 0
		}
	default:
		return AdjustResult{}, ErrInvalidOperation
	}

	delta := newBalance - l.Balance
	l.Balance = newBalance

	if delta != 0 {
		key := manualKey(now)
		l.Records[key] = Record{
			Key:          key,
			Subject:      subject,
			Objective:    manualAdjustmentObjective,
			CoinsAwarded: delta,
			CompletedAt:  now,
			Manual:       true,
		}
	}

	return AdjustResult{Delta: delta, NewBalance: newBalance}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// CLEARING
// ──────────────────────────────────────────────────────────────────────────────

// ClearResult is the outcome of clearing earned records.
type ClearResult struct {
	// RemovedCount is the number of records removed.
	RemovedCount int

	// RemovedCoins is the summed CoinsAwarded of the removed records.
	RemovedCoins int

	// NewBalance is the balance after the clear, floored at zero.
	NewBalance int
}

// Clear removes all records attributed to subjectFilter (every record when
// the filter is empty) and decrements the balance by the removed coins,
// floored at zero. Records without an explicit subject resolve through
// slugSubjects. When no records remain the ledger is marked for deletion.
func (l *Ledger) Clear(subjectFilter string, slugSubjects map[string]string) ClearResult {
	var result ClearResult
	for key, r := range l.Records {
		if subjectFilter != "" && r.SubjectIn(slugSubjects) != subjectFilter {
			continue
		}
		result.RemovedCount++
		result.RemovedCoins += r.CoinsAwarded
		delete(l.Records, key)
	}

	if result.RemovedCount > 0 {
		l.Balance -= result.RemovedCoins
		if l.Balance < 0 {
			l.Balance = 0
		}
		if len(l.Records) == 0 {
			l.purge = true
		}
	}

	result.NewBalance = l.Balance
	return result
}

// ──────────────────────────────────────────────────────────────────────────────
// AGGREGATION
// ──────────────────────────────────────────────────────────────────────────────

// SubjectBalance returns the coin total for a subject filter. An empty filter
// returns the raw balance scalar — the spendable truth. A non-empty filter
// sums CoinsAwarded over matching records — the attribution truth for subject
// leaderboards. The two may diverge after partial manual clears; that
// divergence is intended and load-bearing for existing leaderboards.
func (l *Ledger) SubjectBalance(subjectFilter string, slugSubjects map[string]string) int {
	if subjectFilter == "" {
		return l.Balance
	}

	total := 0
	for _, r := range l.Records {
		if r.SubjectIn(slugSubjects) == subjectFilter {
			total += r.CoinsAwarded
		}
	}
	return total
}
