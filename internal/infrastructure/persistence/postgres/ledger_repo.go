package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coach-hub/science-coach-hub/internal/domain/reward"
	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER REPOSITORY
// Persists reward.Ledger aggregates. Updates run in a transaction with the
// ledger row locked (SELECT FOR UPDATE), so concurrent turns for the same
// student serialize instead of losing awards.
// ══════════════════════════════════════════════════════════════════════════════

// LedgerRepository is the PostgreSQL implementation of reward.Repository.
type LedgerRepository struct {
	conn *Connection
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(conn *Connection) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

var _ reward.Repository = (*LedgerRepository)(nil)

// Get returns the ledger for a student.
func (r *LedgerRepository) Get(ctx context.Context, studentID string) (*reward.Ledger, error) {
	ledger, err := loadLedger(ctx, r.conn.Pool(), studentID, false)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, shared.NewDomainError("reward", "Get", shared.ErrNotFound,
			fmt.Sprintf("no ledger for student %s", studentID))
	}
	return ledger, nil
}

// Update loads the student's ledger under a row lock, applies fn, and writes
// the whole aggregate back. A missing ledger starts empty; an update that
// marks the ledger for purge deletes the row instead.
func (r *LedgerRepository) Update(ctx context.Context, studentID string, fn reward.UpdateFunc) (*reward.Ledger, error) {
	var result *reward.Ledger

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		// FOR UPDATE cannot lock a row that does not exist yet; seed it so
		// concurrent first updates for the same student serialize on the
		// unique key instead of both starting from an empty ledger.
		tag, err := tx.Exec(ctx, `
			INSERT INTO student_ledgers (student_id, display_name, balance, updated_at)
			VALUES ($1, '', 0, $2)
			ON CONFLICT (student_id) DO NOTHING
		`, studentID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("seed ledger: %w", err)
		}
		created := tag.RowsAffected() > 0

		ledger, err := loadLedger(ctx, tx, studentID, true)
		if err != nil {
			return err
		}
		if ledger == nil {
			ledger = reward.NewLedger(studentID)
		}

		if err := fn(ledger); err != nil {
			return err
		}

		switch {
		case ledger.ShouldPurge(),
			created && len(ledger.Records) == 0 && ledger.Balance == 0 && ledger.DisplayName == "":
			// Purged ledgers and untouched new ones leave no row behind.
			if _, err := tx.Exec(ctx, `DELETE FROM student_ledgers WHERE student_id = $1`, studentID); err != nil {
				return fmt.Errorf("delete ledger: %w", err)
			}
		default:
			if err := saveLedger(ctx, tx, ledger); err != nil {
				return err
			}
		}

		result = ledger
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// All returns every stored ledger with its records.
func (r *LedgerRepository) All(ctx context.Context) ([]*reward.Ledger, error) {
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT student_id, display_name, balance
		FROM student_ledgers
		ORDER BY student_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query ledgers: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*reward.Ledger)
	var order []*reward.Ledger
	for rows.Next() {
		l := reward.NewLedger("")
		if err := rows.Scan(&l.StudentID, &l.DisplayName, &l.Balance); err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		byID[l.StudentID] = l
		order = append(order, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recRows, err := r.conn.Pool().Query(ctx, `
		SELECT student_id, record_key, token, lesson_slug, subject, objective,
		       coins_awarded, manual, completed_at
		FROM reward_records
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer recRows.Close()

	for recRows.Next() {
		var studentID string
		var rec reward.Record
		if err := recRows.Scan(&studentID, &rec.Key, &rec.Token, &rec.LessonSlug,
			&rec.Subject, &rec.Objective, &rec.CoinsAwarded, &rec.Manual, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if l, ok := byID[studentID]; ok {
			l.Records[rec.Key] = rec
		}
	}
	if err := recRows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// loadLedger fetches one ledger, optionally locking its row. Returns nil
// without error when the student has no ledger.
func loadLedger(ctx context.Context, q Querier, studentID string, forUpdate bool) (*reward.Ledger, error) {
	query := `SELECT display_name, balance FROM student_ledgers WHERE student_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	ledger := reward.NewLedger(studentID)
	err := q.QueryRow(ctx, query, studentID).Scan(&ledger.DisplayName, &ledger.Balance)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT record_key, token, lesson_slug, subject, objective,
		       coins_awarded, manual, completed_at
		FROM reward_records
		WHERE student_id = $1
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec reward.Record
		if err := rows.Scan(&rec.Key, &rec.Token, &rec.LessonSlug, &rec.Subject,
			&rec.Objective, &rec.CoinsAwarded, &rec.Manual, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		ledger.Records[rec.Key] = rec
	}
	return ledger, rows.Err()
}

// saveLedger upserts the ledger row and replaces its records wholesale.
// Per-student record counts are small, so replace-all keeps the write path
// simple and obviously correct.
func saveLedger(ctx context.Context, tx pgx.Tx, l *reward.Ledger) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO student_ledgers (student_id, display_name, balance, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    balance      = EXCLUDED.balance,
		    updated_at   = EXCLUDED.updated_at
	`, l.StudentID, l.DisplayName, l.Balance, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert ledger: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM reward_records WHERE student_id = $1`, l.StudentID); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	for _, rec := range l.Records {
		_, err := tx.Exec(ctx, `
			INSERT INTO reward_records
				(student_id, record_key, token, lesson_slug, subject, objective,
				 coins_awarded, manual, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, l.StudentID, rec.Key, rec.Token, rec.LessonSlug, rec.Subject,
			rec.Objective, rec.CoinsAwarded, rec.Manual, rec.CompletedAt)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", rec.Key, err)
		}
	}
	return nil
}
