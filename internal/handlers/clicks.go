package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/linkpulse/linkpulse/internal/clicks"
	"go.uber.org/zap"
)

// ClickHandler handles click ingestion.
type ClickHandler struct {
	engine *clicks.Engine
	logger *zap.Logger
}

// NewClickHandler creates a click ingestion handler.
func NewClickHandler(engine *clicks.Engine, logger *zap.Logger) *ClickHandler {
	return &ClickHandler{
		engine: engine,
		logger: logger,
	}
}

// RecordClick ingests one click against a tracked short link.
func (h *ClickHandler) RecordClick(ctx context.Context, req *RecordClickRequest) (*RecordClickResponse, error) {
	meta := RequestMetaFromContext(ctx)

	input := clicks.ClickInput{
		ShortCode: clicks.Code(req.Body.ShortCode),
		IP:        req.Body.IP,
		UserAgent: req.Body.UserAgent,
		Referrer:  req.Body.Referrer,
		Country:   req.Body.Country,
		City:      req.Body.City,
	}

	// Fall back to the forwarded request headers.
	if input.IP == "" {
		input.IP = meta.ClientIP
	}

	if input.UserAgent == "" {
		input.UserAgent = meta.UserAgent
	}

	if input.Referrer == "" {
		input.Referrer = meta.Referrer
	}

	event, err := h.engine.RecordClick(ctx, input)
	if err != nil {
		if errors.Is(err, clicks.ErrLinkNotFound) {
			return nil, huma.Error404NotFound("short code not found")
		}

		h.logger.Error("click ingestion failed",
			zap.String("shortCode", req.Body.ShortCode),
			zap.Error(err),
		)

		return nil, huma.Error500InternalServerError("failed to record click")
	}

	resp := &RecordClickResponse{}
	resp.Body.Recorded = event != nil
	resp.Body.Event = event

	return resp, nil
}
