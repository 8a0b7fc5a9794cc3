package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/linkpulse/linkpulse/internal/clicks"
)

// PostgresEventStore is the PostgreSQL implementation of
// clicks.EventStore. The event log is append-only; nothing here updates
// a row in place.
type PostgresEventStore struct {
	pool *pgxpool.Pool
}

// NewPostgresEventStore creates a Postgres-backed event store.
func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

func (s *PostgresEventStore) Insert(ctx context.Context, e *clicks.ClickEvent) error {
	query := `
		INSERT INTO click_events (
			id, link_id, owner_id, short_code, occurred_at,
			hashed_ip, user_agent, session_id, fingerprint,
			device_type, os, os_version, browser, browser_version,
			is_bot, bot_name, bot_type,
			referrer_url, referrer_domain, referrer_source,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content,
			country, city,
			is_unique_visitor, is_new_session, is_unique_today
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30
		)
	`

	_, err := s.pool.Exec(ctx, query,
		e.ID, e.LinkID, e.OwnerID, string(e.ShortCode), e.OccurredAt,
		e.HashedIP, e.UserAgent, e.SessionID, e.Fingerprint,
		string(e.Device.Type), e.Device.OS, e.Device.OSVersion,
		e.Device.Browser, e.Device.BrowserVersion,
		e.Device.Bot.IsBot, e.Device.Bot.Name, string(e.Device.Bot.Type),
		e.Referrer.URL, e.Referrer.Domain, string(e.Referrer.Source),
		e.Referrer.UTMSource, e.Referrer.UTMMedium, e.Referrer.UTMCampaign,
		e.Referrer.UTMTerm, e.Referrer.UTMContent,
		e.Location.Country, e.Location.City,
		e.IsUniqueVisitor, e.IsNewSession, e.IsUniqueToday,
	)

	return err
}

func (s *PostgresEventStore) History(ctx context.Context, code clicks.Code, hashedIP string) (clicks.VisitorHistory, error) {
	query := `
		SELECT count(*), max(occurred_at)
		FROM click_events
		WHERE short_code = $1 AND hashed_ip = $2 AND NOT is_bot
	`

	var (
		history  clicks.VisitorHistory
		lastSeen *time.Time
	)

	err := s.pool.QueryRow(ctx, query, string(code), hashedIP).Scan(&history.Total, &lastSeen)
	if err != nil {
		return clicks.VisitorHistory{}, err
	}

	if lastSeen != nil {
		history.LastSeen = *lastSeen
	}

	return history, nil
}

func (s *PostgresEventStore) CountTotal(ctx context.Context, code clicks.Code) (int64, error) {
	query := `SELECT count(*) FROM click_events WHERE short_code = $1 AND NOT is_bot`

	return s.count(ctx, query, string(code))
}

func (s *PostgresEventStore) CountUnique(ctx context.Context, code clicks.Code) (int64, error) {
	query := `
		SELECT count(DISTINCT hashed_ip)
		FROM click_events
		WHERE short_code = $1 AND NOT is_bot
	`

	return s.count(ctx, query, string(code))
}

func (s *PostgresEventStore) CountRange(ctx context.Context, code clicks.Code, from, to time.Time) (int64, error) {
	query := `
		SELECT count(*)
		FROM click_events
		WHERE short_code = $1 AND NOT is_bot
			AND occurred_at >= $2 AND occurred_at < $3
	`

	return s.count(ctx, query, string(code), from, to)
}

func (s *PostgresEventStore) CountUniqueRange(ctx context.Context, code clicks.Code, from, to time.Time) (int64, error) {
	query := `
		SELECT count(DISTINCT hashed_ip)
		FROM click_events
		WHERE short_code = $1 AND NOT is_bot
			AND occurred_at >= $2 AND occurred_at < $3
	`

	return s.count(ctx, query, string(code), from, to)
}

func (s *PostgresEventStore) CountSince(ctx context.Context, code clicks.Code, since time.Time) (int64, error) {
	query := `
		SELECT count(*)
		FROM click_events
		WHERE short_code = $1 AND NOT is_bot AND occurred_at >= $2
	`

	return s.count(ctx, query, string(code), since)
}

func (s *PostgresEventStore) LastClickAt(ctx context.Context, code clicks.Code) (time.Time, error) {
	query := `
		SELECT max(occurred_at)
		FROM click_events
		WHERE short_code = $1 AND NOT is_bot
	`

	var last *time.Time
	if err := s.pool.QueryRow(ctx, query, string(code)).Scan(&last); err != nil {
		return time.Time{}, err
	}

	if last == nil {
		return time.Time{}, nil
	}

	return *last, nil
}

func (s *PostgresEventStore) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := `SELECT count(*) FROM click_events WHERE owner_id = $1 AND NOT is_bot`

	return s.count(ctx, query, ownerID)
}

func (s *PostgresEventStore) CountByOwnerSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	query := `
		SELECT count(*)
		FROM click_events
		WHERE owner_id = $1 AND NOT is_bot AND occurred_at >= $2
	`

	return s.count(ctx, query, ownerID, since)
}

// breakdownColumns maps analytics dimensions onto event columns.
// Missing geography buckets as "unknown" instead of erroring.
var breakdownColumns = map[clicks.Dimension]string{
	clicks.DimensionCountry:  `COALESCE(NULLIF(country, ''), 'unknown')`,
	clicks.DimensionDevice:   `device_type`,
	clicks.DimensionBrowser:  `browser`,
	clicks.DimensionReferrer: `referrer_source`,
}

func (s *PostgresEventStore) TopBreakdown(
	ctx context.Context, code clicks.Code, dim clicks.Dimension, from, to time.Time, limit int,
) ([]clicks.BucketCount, error) {
	column, ok := breakdownColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}

	query := `
		SELECT ` + column + ` AS bucket, count(*) AS clicks
		FROM click_events
		WHERE short_code = $1 AND NOT is_bot
			AND occurred_at >= $2 AND occurred_at < $3
		GROUP BY bucket
		ORDER BY clicks DESC, bucket
		LIMIT $4
	`

	rows, err := s.pool.Query(ctx, query, string(code), from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []clicks.BucketCount

	for rows.Next() {
		var bc clicks.BucketCount
		if err := rows.Scan(&bc.Name, &bc.Count); err != nil {
			return nil, err
		}

		out = append(out, bc)
	}

	return out, rows.Err()
}

func (s *PostgresEventStore) DailySeries(ctx context.Context, code clicks.Code, from, to time.Time) ([]clicks.DayCount, error) {
	query := `
		SELECT to_char(date_trunc('day', occurred_at), 'YYYY-MM-DD') AS day, count(*)
		FROM click_events
		WHERE short_code = $1 AND NOT is_bot
			AND occurred_at >= $2 AND occurred_at < $3
		GROUP BY day
		ORDER BY day
	`

	rows, err := s.pool.Query(ctx, query, string(code), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []clicks.DayCount

	for rows.Next() {
		var dc clicks.DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}

		out = append(out, dc)
	}

	return out, rows.Err()
}

func (s *PostgresEventStore) PurgeLink(ctx context.Context, linkID string) error {
	query := `DELETE FROM click_events WHERE link_id = $1`

	_, err := s.pool.Exec(ctx, query, linkID)

	return err
}

func (s *PostgresEventStore) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}

// PostgresAggregateStore is the PostgreSQL implementation of
// clicks.AggregateStore. Every write is a full overwrite of a derived
// row, so concurrent recomputes converge on the same values.
type PostgresAggregateStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAggregateStore creates a Postgres-backed aggregate store.
func NewPostgresAggregateStore(pool *pgxpool.Pool) *PostgresAggregateStore {
	return &PostgresAggregateStore{pool: pool}
}

func (s *PostgresAggregateStore) UpsertLink(ctx context.Context, agg *clicks.LinkAggregate) error {
	query := `
		INSERT INTO link_aggregates
			(short_code, total, unique_visitors, today, this_week, this_month, last_click_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (short_code) DO UPDATE SET
			total = EXCLUDED.total,
			unique_visitors = EXCLUDED.unique_visitors,
			today = EXCLUDED.today,
			this_week = EXCLUDED.this_week,
			this_month = EXCLUDED.this_month,
			last_click_at = EXCLUDED.last_click_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		string(agg.ShortCode), agg.Total, agg.Unique,
		agg.Today, agg.ThisWeek, agg.ThisMonth,
		nullableTime(agg.LastClickAt), agg.UpdatedAt,
	)

	return err
}

func (s *PostgresAggregateStore) GetLink(ctx context.Context, code clicks.Code) (*clicks.LinkAggregate, error) {
	query := `
		SELECT short_code, total, unique_visitors, today, this_week, this_month, last_click_at, updated_at
		FROM link_aggregates
		WHERE short_code = $1
	`

	var (
		agg       clicks.LinkAggregate
		lastClick *time.Time
	)

	err := s.pool.QueryRow(ctx, query, string(code)).Scan(
		&agg.ShortCode, &agg.Total, &agg.Unique,
		&agg.Today, &agg.ThisWeek, &agg.ThisMonth,
		&lastClick, &agg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, clicks.ErrNotFound
		}

		return nil, err
	}

	if lastClick != nil {
		agg.LastClickAt = *lastClick
	}

	return &agg, nil
}

func (s *PostgresAggregateStore) UpsertOwner(ctx context.Context, usage *clicks.OwnerUsage) error {
	query := `
		INSERT INTO owner_usage (owner_id, active_links, lifetime_clicks, month_clicks, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id) DO UPDATE SET
			active_links = EXCLUDED.active_links,
			lifetime_clicks = EXCLUDED.lifetime_clicks,
			month_clicks = EXCLUDED.month_clicks,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		usage.OwnerID, usage.ActiveLinks, usage.Lifetime, usage.ThisMonth, usage.UpdatedAt,
	)

	return err
}

func (s *PostgresAggregateStore) GetOwner(ctx context.Context, ownerID string) (*clicks.OwnerUsage, error) {
	query := `
		SELECT owner_id, active_links, lifetime_clicks, month_clicks, updated_at
		FROM owner_usage
		WHERE owner_id = $1
	`

	var usage clicks.OwnerUsage

	err := s.pool.QueryRow(ctx, query, ownerID).Scan(
		&usage.OwnerID, &usage.ActiveLinks, &usage.Lifetime, &usage.ThisMonth, &usage.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, clicks.ErrNotFound
		}

		return nil, err
	}

	return &usage, nil
}

// PostgresLinkResolver is the PostgreSQL implementation of
// clicks.LinkResolver over the links table owned by the shortener.
type PostgresLinkResolver struct {
	pool *pgxpool.Pool
}

// NewPostgresLinkResolver creates a Postgres-backed link resolver.
func NewPostgresLinkResolver(pool *pgxpool.Pool) *PostgresLinkResolver {
	return &PostgresLinkResolver{pool: pool}
}

func (r *PostgresLinkResolver) Resolve(ctx context.Context, code clicks.Code) (*clicks.Link, error) {
	query := `
		SELECT id, owner_id, short_code, is_deleted
		FROM links
		WHERE short_code = $1
	`

	var link clicks.Link

	err := r.pool.QueryRow(ctx, query, string(code)).Scan(
		&link.ID, &link.OwnerID, &link.Code, &link.IsDeleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, clicks.ErrLinkNotFound
		}

		return nil, err
	}

	return &link, nil
}

func (r *PostgresLinkResolver) ListActive(ctx context.Context) ([]clicks.Link, error) {
	query := `
		SELECT id, owner_id, short_code, is_deleted
		FROM links
		WHERE NOT is_deleted
		ORDER BY short_code
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []clicks.Link

	for rows.Next() {
		var link clicks.Link
		if err := rows.Scan(&link.ID, &link.OwnerID, &link.Code, &link.IsDeleted); err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, rows.Err()
}

func (r *PostgresLinkResolver) ListOwners(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT owner_id FROM links ORDER BY owner_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		owners = append(owners, id)
	}

	return owners, rows.Err()
}

func (r *PostgresLinkResolver) CountActiveByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := `SELECT count(*) FROM links WHERE owner_id = $1 AND NOT is_deleted`

	var n int64
	if err := r.pool.QueryRow(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}
