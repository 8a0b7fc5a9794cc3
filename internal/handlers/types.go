package handlers

import (
	"time"

	"github.com/linkpulse/linkpulse/internal/analytics"
	"github.com/linkpulse/linkpulse/internal/clicks"
)

// RecordClickRequest is the ingest request for one redirect click.
// IP, user-agent and referrer fall back to request metadata when the
// body omits them, so the redirect edge can forward headers as-is.
type RecordClickRequest struct {
	Body struct {
		ShortCode string `doc:"Short code that was clicked" example:"abc123"              json:"shortCode"`
		IP        string `doc:"Client IP, if known"         example:"203.0.113.7"         json:"ip,omitempty"`
		UserAgent string `doc:"Client user-agent"           example:"Mozilla/5.0 ..."     json:"userAgent,omitempty"`
		Referrer  string `doc:"Referer header"              example:"https://google.com"  json:"referrer,omitempty"`
		Country   string `doc:"Best-effort country"         example:"DE"                  json:"country,omitempty"`
		City      string `doc:"Best-effort city"            example:"Berlin"              json:"city,omitempty"`
	}
}

// RecordClickResponse reports whether the click was recorded and, when
// it was, the persisted event.
type RecordClickResponse struct {
	Body struct {
		Recorded bool               `doc:"False when the click was rejected as a reload" json:"recorded"`
		Event    *clicks.ClickEvent `doc:"The persisted event, when recorded"            json:"event,omitempty"`
	}
}

// AnalyticsRequest selects a short code and an optional time range.
type AnalyticsRequest struct {
	Code string    `doc:"The short code"                   example:"abc123" path:"code"`
	From time.Time `doc:"Range start (default: 30d ago)"   query:"from"`
	To   time.Time `doc:"Range end (default: now)"         query:"to"`
}

// AnalyticsResponse carries the analytics summary.
type AnalyticsResponse struct {
	Body analytics.Summary
}

// LinkStatsRequest selects one short code.
type LinkStatsRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// LinkStatsResponse carries the cached per-link counters.
type LinkStatsResponse struct {
	Body clicks.LinkAggregate
}

// OwnerUsageRequest selects one owner.
type OwnerUsageRequest struct {
	OwnerID string `doc:"The owner id" example:"user-42" path:"ownerId"`
}

// OwnerUsageResponse carries the cached per-owner usage counters.
type OwnerUsageResponse struct {
	Body clicks.OwnerUsage
}

// SyncStatisticsRequest optionally narrows a statistics sync to one code.
type SyncStatisticsRequest struct {
	Code string `doc:"Sync only this short code (all when empty)" query:"code"`
}

// SyncUsageRequest optionally narrows a usage sync to one owner.
type SyncUsageRequest struct {
	OwnerID string `doc:"Sync only this owner (all when empty)" query:"ownerId"`
}

// PurgeEventsRequest selects the deleted link whose events to purge.
type PurgeEventsRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// SyncResponse acknowledges a completed sync.
type SyncResponse struct {
	Body struct {
		Status string `doc:"Always ok on success" json:"status"`
	}
}
