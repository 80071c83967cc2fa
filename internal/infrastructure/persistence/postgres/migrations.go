package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// Embedded schema migrations, applied in order and tracked in
// schema_migrations.
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents one schema migration.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

// Migrator applies embedded migrations.
type Migrator struct {
	conn      *Connection
	tableName string
}

// NewMigrator creates a migrator over the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn, tableName: "schema_migrations"}
}

// Migrate applies all pending migrations in version order.
func (m *Migrator) Migrate(ctx context.Context) error {
	ensure := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)
	if _, err := m.conn.Pool().Exec(ctx, ensure); err != nil {
		return fmt.Errorf("%w: create migrations table: %v", ErrMigrationFailed, err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, mig := range GetMigrations() {
		if _, ok := applied[mig.Version]; ok {
			continue
		}

		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("execute migration %d: %w", mig.Version, err)
			}
			insert := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insert, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)
	rows, err := m.conn.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_ledgers", UpSQL: migration001Up},
		{Version: 2, Name: "create_progress", UpSQL: migration002Up},
		{Version: 3, Name: "create_lessons", UpSQL: migration003Up},
		{Version: 4, Name: "progress_turn_outcome", UpSQL: migration004Up},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS student_ledgers (
	student_id   TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	balance      INTEGER NOT NULL DEFAULT 0,
	updated_at   TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reward_records (
	student_id    TEXT NOT NULL REFERENCES student_ledgers(student_id) ON DELETE CASCADE,
	record_key    TEXT NOT NULL,
	token         TEXT NOT NULL DEFAULT '',
	lesson_slug   TEXT NOT NULL DEFAULT '',
	subject       TEXT NOT NULL DEFAULT '',
	objective     TEXT NOT NULL DEFAULT '',
	coins_awarded INTEGER NOT NULL DEFAULT 0,
	manual        BOOLEAN NOT NULL DEFAULT FALSE,
	completed_at  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
	PRIMARY KEY (student_id, record_key)
);

CREATE INDEX IF NOT EXISTS idx_reward_records_subject ON reward_records(subject);
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS progress_entries (
	id              TEXT PRIMARY KEY,
	student_id      TEXT NOT NULL,
	student_name    TEXT NOT NULL DEFAULT '',
	lesson_slug     TEXT NOT NULL DEFAULT '',
	student_message TEXT NOT NULL,
	assistant_reply TEXT NOT NULL,
	objective_key   TEXT NOT NULL DEFAULT '',
	coins_awarded   INTEGER NOT NULL DEFAULT 0,
	coin_balance    INTEGER NOT NULL DEFAULT 0,
	recorded_at     TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_progress_entries_recorded_at ON progress_entries(recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_progress_entries_student ON progress_entries(student_id);
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS catalog_lessons (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	title      TEXT NOT NULL,
	slug       TEXT NOT NULL,
	objectives TEXT[] NOT NULL DEFAULT '{}',
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_catalog_lessons_slug ON catalog_lessons(slug);
`

const migration004Up = `
ALTER TABLE progress_entries ADD COLUMN IF NOT EXISTS objective_met BOOLEAN NOT NULL DEFAULT FALSE;
ALTER TABLE progress_entries ADD COLUMN IF NOT EXISTS tasks TEXT[] NOT NULL DEFAULT '{}';
ALTER TABLE progress_entries ADD COLUMN IF NOT EXISTS token TEXT NOT NULL DEFAULT '';
`
