package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/linkpulse/linkpulse/internal/ratelimit"
)

// RegisterRoutes registers all engine routes with per-endpoint rate
// limit configuration.
func RegisterRoutes(api huma.API, click *ClickHandler, analytics *AnalyticsHandler, sync *SyncHandler) {
	// Ingestion runs once per redirect; limits stay high so the edge is
	// never throttled by its own attribution engine.
	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/clicks",
		Summary:     "Record a click",
		Description: "Ingests one redirect click: classifies, dedups and records it.",
		Tags:        []string{"Clicks"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 5000},
				},
			},
		},
	}, click.RecordClick)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/links/{code}/analytics",
		Summary:     "Get link analytics",
		Description: "Totals, top-10 breakdowns and a daily series from non-bot events.",
		Tags:        []string{"Analytics"},
	}, analytics.GetAnalytics)

	huma.Register(api, huma.Operation{
		Method:  http.MethodGet,
		Path:    "/links/{code}/stats",
		Summary: "Get cached link counters",
		Tags:    []string{"Analytics"},
	}, analytics.GetLinkStats)

	huma.Register(api, huma.Operation{
		Method:  http.MethodGet,
		Path:    "/owners/{ownerId}/usage",
		Summary: "Get cached owner usage",
		Tags:    []string{"Analytics"},
	}, analytics.GetOwnerUsage)

	// Full syncs walk every link; keep them behind strict limits.
	syncLimits := ratelimit.EndpointConfig{
		Limits: []ratelimit.LimitConfig{
			{Window: time.Minute, Max: 6},
			{Window: time.Hour, Max: 60},
		},
	}

	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/sync/statistics",
		Summary:     "Recompute link statistics",
		Description: "Recomputes the aggregate for one code, or all codes when omitted.",
		Tags:        []string{"Sync"},
		Metadata:    map[string]any{ratelimit.MetadataKey: syncLimits},
	}, sync.SyncStatistics)

	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/sync/usage",
		Summary:     "Recompute owner usage",
		Description: "Recomputes usage for one owner, or all owners when omitted.",
		Tags:        []string{"Sync"},
		Metadata:    map[string]any{ratelimit.MetadataKey: syncLimits},
	}, sync.SyncUsage)

	huma.Register(api, huma.Operation{
		Method:      http.MethodDelete,
		Path:        "/links/{code}/events",
		Summary:     "Purge a deleted link's events",
		Description: "Deletes the event log of a permanently deleted link. Live links are refused.",
		Tags:        []string{"Sync"},
		Metadata:    map[string]any{ratelimit.MetadataKey: syncLimits},
	}, sync.PurgeEvents)
}
