package middleware

import (
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/linkpulse/linkpulse/internal/handlers"
)

// RequestMeta captures the click signals carried by the HTTP request
// itself (client IP, user-agent, referrer) and stores them in the
// request context. Ingestion falls back to these when the body omits a
// signal, and the rate limiter keys clients off the same extraction.
func RequestMeta(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			ClientIP:  clientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
			Referrer:  ctx.Header("Referer"),
		}

		next(huma.WithContext(ctx, handlers.ContextWithRequestMeta(ctx.Context(), meta)))
	}
}

// clientIP resolves the originating client address behind proxies. The
// first X-Forwarded-For entry is the original client.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	host := ctx.Host()

	if ip, _, err := net.SplitHostPort(host); err == nil {
		return ip
	}

	return host
}
