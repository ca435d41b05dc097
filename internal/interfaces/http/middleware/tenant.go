package middleware

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/access"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// TenantConfig names where a requested tenant scope is read from.
type TenantConfig struct {
	HeaderName string
	QueryParam string
}

var tenantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func DefaultTenantConfig() TenantConfig {
	return TenantConfig{HeaderName: "X-Tenant-ID", QueryParam: "tenantId"}
}

// NewTenantMiddleware resolves the tenant scope of an authenticated request.
// It must run after AuthMiddleware. Privileged callers may name any tenant
// or none (all tenants); other callers are pinned to their own tenant and
// naming another one is rejected with 403.
func NewTenantMiddleware(cfg TenantConfig, logger logging.Logger) func(http.Handler) http.Handler {
	def := DefaultTenantConfig()
	if cfg.HeaderName == "" {
		cfg.HeaderName = def.HeaderName
	}
	if cfg.QueryParam == "" {
		cfg.QueryParam = def.QueryParam
	}
	logger = logger.Named("tenant")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "authentication required")
				return
			}

			requested := extractTenantID(r, cfg.HeaderName, cfg.QueryParam)
			if requested != "" && !tenantIDPattern.MatchString(requested) {
				writeError(w, http.StatusBadRequest, errors.ErrCodeValidation,
					fmt.Sprintf("invalid tenant id %q", requested))
				return
			}

			scope, err := access.ResolveTenant(caller, requested)
			if err != nil {
				logger.Warn("tenant scope denied",
					logging.String("user_id", caller.UserID),
					logging.String("caller_tenant", caller.TenantID),
					logging.String("requested_tenant", requested),
					logging.String("path", r.URL.Path),
				)
				writeError(w, http.StatusForbidden, errors.ErrCodeForbidden, "tenant access denied")
				return
			}

			if h := identityHolder(r.Context()); h != nil {
				h.tenantID = scope
			}
			if scope != "" {
				w.Header().Set("X-Tenant-ID", scope)
			}
			next.ServeHTTP(w, r.WithContext(WithTenantScope(r.Context(), scope)))
		})
	}
}

// WithTenantScope returns ctx carrying the resolved tenant scope.
func WithTenantScope(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey, tenantID)
}

// TenantScope returns the resolved tenant; empty means all tenants.
func TenantScope(ctx context.Context) string {
	s, _ := ctx.Value(tenantContextKey).(string)
	return s
}

func extractTenantID(r *http.Request, headerName, queryParam string) string {
	if v := strings.TrimSpace(r.Header.Get(headerName)); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get(queryParam))
}
