package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/linkpulse/linkpulse/internal/analytics"
	"github.com/linkpulse/linkpulse/internal/clicks"
)

// AnalyticsHandler serves read queries over the click log and the
// derived counter caches.
type AnalyticsHandler struct {
	service    *analytics.Service
	aggregates clicks.AggregateStore
}

// NewAnalyticsHandler creates an analytics handler.
func NewAnalyticsHandler(service *analytics.Service, aggregates clicks.AggregateStore) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:    service,
		aggregates: aggregates,
	}
}

// GetAnalytics returns the full analytics summary for one short code.
func (h *AnalyticsHandler) GetAnalytics(ctx context.Context, req *AnalyticsRequest) (*AnalyticsResponse, error) {
	summary, err := h.service.Summary(ctx, clicks.Code(req.Code), req.From, req.To)
	if err != nil {
		if errors.Is(err, clicks.ErrLinkNotFound) {
			return nil, huma.Error404NotFound("short code not found")
		}

		return nil, huma.Error500InternalServerError("failed to build analytics summary")
	}

	return &AnalyticsResponse{Body: *summary}, nil
}

// GetLinkStats returns the cached per-link counters.
func (h *AnalyticsHandler) GetLinkStats(ctx context.Context, req *LinkStatsRequest) (*LinkStatsResponse, error) {
	agg, err := h.aggregates.GetLink(ctx, clicks.Code(req.Code))
	if err != nil {
		if errors.Is(err, clicks.ErrNotFound) {
			return nil, huma.Error404NotFound("no statistics for short code")
		}

		return nil, huma.Error500InternalServerError("failed to load statistics")
	}

	return &LinkStatsResponse{Body: *agg}, nil
}

// GetOwnerUsage returns the cached per-owner usage counters.
func (h *AnalyticsHandler) GetOwnerUsage(ctx context.Context, req *OwnerUsageRequest) (*OwnerUsageResponse, error) {
	usage, err := h.aggregates.GetOwner(ctx, req.OwnerID)
	if err != nil {
		if errors.Is(err, clicks.ErrNotFound) {
			return nil, huma.Error404NotFound("no usage for owner")
		}

		return nil, huma.Error500InternalServerError("failed to load usage")
	}

	return &OwnerUsageResponse{Body: *usage}, nil
}
