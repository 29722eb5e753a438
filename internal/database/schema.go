package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS attorney_profiles (
		id              BIGSERIAL PRIMARY KEY,
		profile_url     TEXT NOT NULL UNIQUE,
		nomenclature_id TEXT NOT NULL DEFAULT '',
		full_name       TEXT NOT NULL DEFAULT '',
		review_count    INTEGER NOT NULL DEFAULT 0,
		review_filter   TEXT NOT NULL DEFAULT '',
		record          JSONB NOT NULL,
		scraped_at      TIMESTAMPTZ NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attorney_reviews (
		profile_id      BIGINT NOT NULL REFERENCES attorney_profiles(id) ON DELETE CASCADE,
		position        INTEGER NOT NULL,
		reviewer_name   TEXT,
		review_date     DATE,
		rating          INTEGER NOT NULL DEFAULT 0,
		title           TEXT NOT NULL DEFAULT '',
		body            TEXT NOT NULL DEFAULT '',
		review_type     TEXT NOT NULL DEFAULT '',
		tooltip         TEXT,
		response_name   TEXT,
		response_date   DATE,
		response_text   TEXT,
		PRIMARY KEY (profile_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_event (
		id             UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		payload        JSONB NOT NULL,
		target_stream  TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'pending',
		retry_count    INTEGER NOT NULL DEFAULT 0,
		error_message  TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at   TIMESTAMPTZ,
		next_retry_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_event_pending
		ON outbox_event (status, next_retry_at, created_at)`,
}

// EnsureSchema creates the tables used by the scraper when they are missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
