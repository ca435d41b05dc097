package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
)

type LoggingConfig struct {
	// SkipPaths are not logged.
	SkipPaths     []string
	SlowThreshold time.Duration
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 2 * time.Second,
	}
}

// RequestLogging logs one line per request, at Error for 5xx, Warn for 4xx
// and slow requests, Info otherwise.
func RequestLogging(logger logging.Logger, cfg LoggingConfig) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	logger = logger.Named("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// The caller and tenant are attached further down the chain, so they
			// are read back through a holder the inner middleware fills in.
			holder := &requestIdentity{}
			next.ServeHTTP(ww, r.WithContext(withIdentityHolder(r.Context(), holder)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.String("route", routePattern(r)),
				logging.Int("status", status),
				logging.Duration("duration", elapsed),
				logging.Int("bytes", ww.BytesWritten()),
				logging.String("request_id", chimw.GetReqID(r.Context())),
			}
			if holder.userID != "" {
				fields = append(fields, logging.String("user_id", holder.userID))
			}
			if holder.tenantID != "" {
				fields = append(fields, logging.String("tenant_id", holder.tenantID))
			}

			switch {
			case status >= 500:
				logger.Error("request completed with server error", fields...)
			case status >= 400:
				logger.Warn("request completed with client error", fields...)
			case cfg.SlowThreshold > 0 && elapsed >= cfg.SlowThreshold:
				logger.Warn("slow request", fields...)
			default:
				logger.Info("request completed", fields...)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type requestIdentity struct {
	userID   string
	tenantID string
}

func withIdentityHolder(ctx context.Context, h *requestIdentity) context.Context {
	return context.WithValue(ctx, identityContextKey, h)
}

func identityHolder(ctx context.Context) *requestIdentity {
	h, _ := ctx.Value(identityContextKey).(*requestIdentity)
	return h
}
