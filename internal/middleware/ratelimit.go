package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/linkpulse/linkpulse/internal/handlers"
	"github.com/linkpulse/linkpulse/internal/ratelimit"
	"go.uber.org/zap"
)

// RateLimiter returns a huma middleware that limits requests per client.
// Per-endpoint limits come from operation metadata under
// ratelimit.MetadataKey; endpoints without metadata use the limiter's
// defaults. Must run after RequestMeta, which extracts the client
// identity this keys on.
func RateLimiter(api huma.API, limiter *ratelimit.Limiter, logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		var limits []ratelimit.LimitConfig

		if cfg := ratelimit.GetEndpointConfig(ctx); cfg != nil {
			if cfg.Disabled {
				next(ctx)

				return
			}

			limits = cfg.Limits
		}

		allowed, exceeded, err := limiter.Allow(ctx.Context(), endpointKey(ctx), clientKey(ctx), limits)
		if err != nil {
			logger.Error("rate limit check failed", zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if !allowed {
			logger.Warn("rate limit exceeded",
				zap.Duration("window", exceeded.Config.Window),
				zap.Int64("count", exceeded.Count),
			)
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")

			return
		}

		next(ctx)
	}
}

// endpointKey identifies the operation being limited by its route
// template, so endpoints sharing a window size keep separate counters.
func endpointKey(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Method + " " + op.Path
	}

	return ctx.Method() + " " + ctx.URL().Path
}

// clientKey derives a rate limiting key from the extracted client IP
// and user-agent. Hashing keeps raw addresses out of the limiter store,
// same as the event log.
func clientKey(ctx huma.Context) string {
	meta := handlers.RequestMetaFromContext(ctx.Context())

	hash := sha256.Sum256([]byte(meta.ClientIP + "|" + meta.UserAgent))

	return hex.EncodeToString(hash[:])
}
