package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. Statements are idempotent so repeated
// boots are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS links (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		short_code TEXT NOT NULL UNIQUE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_owner ON links (owner_id)`,

	`CREATE TABLE IF NOT EXISTS click_events (
		id                UUID PRIMARY KEY,
		link_id           TEXT NOT NULL,
		owner_id          TEXT NOT NULL,
		short_code        TEXT NOT NULL,
		occurred_at       TIMESTAMPTZ NOT NULL,
		hashed_ip         TEXT NOT NULL,
		user_agent        TEXT NOT NULL DEFAULT '',
		session_id        TEXT NOT NULL,
		fingerprint       TEXT NOT NULL,
		device_type       TEXT NOT NULL,
		os                TEXT NOT NULL DEFAULT '',
		os_version        TEXT NOT NULL DEFAULT '',
		browser           TEXT NOT NULL DEFAULT '',
		browser_version   TEXT NOT NULL DEFAULT '',
		is_bot            BOOLEAN NOT NULL,
		bot_name          TEXT NOT NULL DEFAULT '',
		bot_type          TEXT NOT NULL DEFAULT '',
		referrer_url      TEXT NOT NULL DEFAULT '',
		referrer_domain   TEXT NOT NULL DEFAULT '',
		referrer_source   TEXT NOT NULL,
		utm_source        TEXT NOT NULL DEFAULT '',
		utm_medium        TEXT NOT NULL DEFAULT '',
		utm_campaign      TEXT NOT NULL DEFAULT '',
		utm_term          TEXT NOT NULL DEFAULT '',
		utm_content       TEXT NOT NULL DEFAULT '',
		country           TEXT NOT NULL DEFAULT '',
		city              TEXT NOT NULL DEFAULT '',
		is_unique_visitor BOOLEAN NOT NULL,
		is_new_session    BOOLEAN NOT NULL,
		is_unique_today   BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_click_events_code_time
		ON click_events (short_code, occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_click_events_code_visitor
		ON click_events (short_code, hashed_ip, occurred_at)`,
	`CREATE INDEX IF NOT EXISTS idx_click_events_owner_time
		ON click_events (owner_id, occurred_at)`,

	`CREATE TABLE IF NOT EXISTS link_aggregates (
		short_code      TEXT PRIMARY KEY,
		total           BIGINT NOT NULL,
		unique_visitors BIGINT NOT NULL,
		today           BIGINT NOT NULL,
		this_week       BIGINT NOT NULL,
		this_month      BIGINT NOT NULL,
		last_click_at   TIMESTAMPTZ,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS owner_usage (
		owner_id        TEXT PRIMARY KEY,
		active_links    BIGINT NOT NULL,
		lifetime_clicks BIGINT NOT NULL,
		month_clicks    BIGINT NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the tables and indexes the stores rely on.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return nil
}
