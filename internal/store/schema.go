package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on every Open. Statements must be idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS llm_events (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence      INTEGER NOT NULL UNIQUE,
		created_at    INTEGER NOT NULL,
		provider      TEXT NOT NULL,
		model         TEXT NOT NULL,
		purpose       TEXT NOT NULL DEFAULT '',
		batch_id      TEXT NOT NULL DEFAULT '',
		member_code   TEXT NOT NULL DEFAULT '',
		input_tokens  INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms    INTEGER NOT NULL DEFAULT 0,
		success       INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body  TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS llm_events_purpose ON llm_events (purpose)`,
	`CREATE INDEX IF NOT EXISTS llm_events_batch ON llm_events (batch_id)`,
	`CREATE TABLE IF NOT EXISTS counsel_results (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id         TEXT NOT NULL,
		item_index       INTEGER NOT NULL,
		member_code      TEXT NOT NULL DEFAULT '',
		exam_test_code   TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL,
		case_code        TEXT NOT NULL DEFAULT '',
		catalog_version  TEXT NOT NULL DEFAULT '',
		supporting_score REAL NOT NULL DEFAULT 0,
		confidence_tier  TEXT NOT NULL DEFAULT '',
		payload          TEXT NOT NULL DEFAULT '',
		error_message    TEXT NOT NULL DEFAULT '',
		duration_ms      INTEGER NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL,
		UNIQUE (batch_id, item_index)
	)`,
	`CREATE INDEX IF NOT EXISTS counsel_results_member ON counsel_results (member_code, exam_test_code)`,
	// Single-row counter so event order survives restarts and id reuse.
	`CREATE TABLE IF NOT EXISTS global_sequence (
		id       INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL
	)`,
	`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
