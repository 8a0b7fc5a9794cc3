package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/linkpulse/linkpulse/internal/clicks"
	"github.com/linkpulse/linkpulse/internal/rollup"
	"go.uber.org/zap"
)

// SyncHandler exposes the maintenance recompute and purge operations.
type SyncHandler struct {
	rollup   *rollup.Engine
	resolver clicks.LinkResolver
	events   clicks.EventStore
	logger   *zap.Logger
}

// NewSyncHandler creates a sync handler.
func NewSyncHandler(
	engine *rollup.Engine,
	resolver clicks.LinkResolver,
	events clicks.EventStore,
	logger *zap.Logger,
) *SyncHandler {
	return &SyncHandler{
		rollup:   engine,
		resolver: resolver,
		events:   events,
		logger:   logger,
	}
}

// SyncStatistics recomputes the LinkAggregate for one short code, or
// for every active link when no code is given.
func (h *SyncHandler) SyncStatistics(ctx context.Context, req *SyncStatisticsRequest) (*SyncResponse, error) {
	var err error

	if req.Code != "" {
		err = h.rollup.RecomputeLink(ctx, clicks.Code(req.Code))
	} else {
		err = h.rollup.SyncAll(ctx)
	}

	if err != nil {
		h.logger.Error("statistics sync failed", zap.String("code", req.Code), zap.Error(err))

		return nil, huma.Error500InternalServerError("statistics sync failed")
	}

	resp := &SyncResponse{}
	resp.Body.Status = "ok"

	return resp, nil
}

// SyncUsage recomputes the OwnerUsage for one owner, or for every owner
// when no owner is given.
func (h *SyncHandler) SyncUsage(ctx context.Context, req *SyncUsageRequest) (*SyncResponse, error) {
	var err error

	if req.OwnerID != "" {
		err = h.rollup.RecomputeOwner(ctx, req.OwnerID)
	} else {
		err = h.rollup.SyncAllOwners(ctx)
	}

	if err != nil {
		h.logger.Error("usage sync failed", zap.String("ownerId", req.OwnerID), zap.Error(err))

		return nil, huma.Error500InternalServerError("usage sync failed")
	}

	resp := &SyncResponse{}
	resp.Body.Status = "ok"

	return resp, nil
}

// PurgeEvents deletes the event log of a permanently deleted link.
// Purging a live link is refused.
func (h *SyncHandler) PurgeEvents(ctx context.Context, req *PurgeEventsRequest) (*SyncResponse, error) {
	link, err := h.resolver.Resolve(ctx, clicks.Code(req.Code))
	if err != nil {
		if errors.Is(err, clicks.ErrLinkNotFound) {
			return nil, huma.Error404NotFound("short code not found")
		}

		return nil, huma.Error500InternalServerError("failed to resolve short code")
	}

	if !link.IsDeleted {
		return nil, huma.Error409Conflict("link is not deleted")
	}

	if err := h.events.PurgeLink(ctx, link.ID); err != nil {
		h.logger.Error("event purge failed", zap.String("code", req.Code), zap.Error(err))

		return nil, huma.Error500InternalServerError("event purge failed")
	}

	h.logger.Info("event log purged",
		zap.String("code", req.Code),
		zap.String("linkId", link.ID),
	)

	resp := &SyncResponse{}
	resp.Body.Status = "ok"

	return resp, nil
}
