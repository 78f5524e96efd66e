package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on every start; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		phone         TEXT,
		password_hash TEXT NOT NULL,
		salt          TEXT,
		role          TEXT NOT NULL CHECK (role IN ('admin', 'sales', 'support')),
		full_name     TEXT NOT NULL,
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_login    TIMESTAMPTZ
	)`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS phone TEXT`,
	`ALTER TABLE users ALTER COLUMN salt DROP NOT NULL`,

	`CREATE TABLE IF NOT EXISTS institutions (
		id                     UUID PRIMARY KEY,
		name                   TEXT NOT NULL,
		rector_name            TEXT NOT NULL,
		rector_email           TEXT NOT NULL,
		rector_phone           TEXT NOT NULL,
		counterpart_name       TEXT NOT NULL,
		counterpart_email      TEXT NOT NULL,
		counterpart_phone      TEXT NOT NULL,
		website                TEXT,
		country                TEXT NOT NULL DEFAULT 'Ecuador',
		city                   TEXT NOT NULL DEFAULT '',
		address                TEXT,
		first_contact          DATE NOT NULL,
		initial_contact_medium TEXT NOT NULL,
		num_teachers           INTEGER NOT NULL DEFAULT 0 CHECK (num_teachers >= 0),
		num_students           INTEGER NOT NULL DEFAULT 0 CHECK (num_students >= 0),
		avg_fee                DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (avg_fee >= 0),
		stage                  TEXT NOT NULL,
		substage               TEXT NOT NULL,
		program_proposed       TEXT NOT NULL,
		proposal_value         DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (proposal_value >= 0),
		contract_start         DATE,
		contract_end           DATE,
		observations           TEXT,
		owner_id               UUID REFERENCES users(id) ON DELETE SET NULL,
		no_interest_reason     TEXT NOT NULL DEFAULT '',
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	// older databases were created without the column
	`ALTER TABLE institutions ADD COLUMN IF NOT EXISTS last_interaction DATE`,
	`CREATE INDEX IF NOT EXISTS idx_institutions_stage ON institutions (stage, last_interaction DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_institutions_owner ON institutions (owner_id)`,

	`CREATE TABLE IF NOT EXISTS interactions (
		id             UUID PRIMARY KEY,
		institution_id UUID NOT NULL REFERENCES institutions(id) ON DELETE CASCADE,
		date           DATE NOT NULL,
		medium         TEXT NOT NULL,
		notes          TEXT NOT NULL DEFAULT '',
		author_id      UUID REFERENCES users(id) ON DELETE SET NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_institution ON interactions (institution_id, date DESC)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id             UUID PRIMARY KEY,
		institution_id UUID NOT NULL REFERENCES institutions(id) ON DELETE CASCADE,
		assignee_id    UUID REFERENCES users(id) ON DELETE SET NULL,
		title          TEXT NOT NULL,
		due_date       DATE NOT NULL,
		done           BOOLEAN NOT NULL DEFAULT FALSE,
		notes          TEXT NOT NULL DEFAULT '',
		origin         TEXT NOT NULL DEFAULT 'manual',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_open ON tasks (done, due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks (assignee_id)`,
}

// backfillLastInteraction repairs rows whose last_interaction lags behind
// their logged interactions.
const backfillLastInteraction = `
	UPDATE institutions i
	SET last_interaction = latest.date
	FROM (
		SELECT institution_id, MAX(date) AS date
		FROM interactions
		GROUP BY institution_id
	) latest
	WHERE latest.institution_id = i.id
	  AND (i.last_interaction IS NULL OR i.last_interaction < latest.date)
`

// Migrate creates or upgrades the schema and returns how many rows the
// last_interaction backfill fixed.
func Migrate(ctx context.Context, db *sql.DB) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}

	res, err := tx.ExecContext(ctx, backfillLastInteraction)
	if err != nil {
		return 0, fmt.Errorf("backfill last_interaction: %w", err)
	}
	fixed, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit migration: %w", err)
	}
	return fixed, nil
}
