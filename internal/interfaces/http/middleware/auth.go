// Package middleware holds the HTTP middleware chain: bearer authentication,
// tenant scoping, request logging, and request metrics.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/access"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

type contextKey int

const (
	callerContextKey contextKey = iota
	tenantContextKey
	identityContextKey
)

// Claims is the token payload issued by the identity provider. The user id
// travels in the standard "sub" claim.
type Claims struct {
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenValidator verifies a raw bearer token.
type TokenValidator interface {
	ValidateToken(token string) (*Claims, error)
}

// JWTValidator checks HMAC-signed tokens.
type JWTValidator struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTValidator(secret, issuer string) *JWTValidator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTValidator{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

func (v *JWTValidator) ValidateToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, pkgerrors.Unauthorized("token has no subject")
	}
	return claims, nil
}

// AuthFailureRecorder counts rejected requests by reason.
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

type AuthConfig struct {
	// SkipPaths bypass authentication, matched exactly or as a path prefix.
	SkipPaths       []string
	PrivilegedRoles []string
}

type AuthMiddleware struct {
	validator TokenValidator
	config    AuthConfig
	recorder  AuthFailureRecorder
	logger    logging.Logger
}

// NewAuthMiddleware builds the bearer middleware. recorder may be nil.
func NewAuthMiddleware(validator TokenValidator, cfg AuthConfig, recorder AuthFailureRecorder, logger logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		config:    cfg,
		recorder:  recorder,
		logger:    logger.Named("auth"),
	}
}

// Handler rejects requests without a valid bearer token and stores the
// resulting access.Caller in the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.shouldSkip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			m.reject(w, r, "missing_token", "authentication required")
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				reason = "expired"
			}
			m.logger.Debug("token rejected", logging.String("path", r.URL.Path), logging.Err(err))
			m.reject(w, r, reason, "invalid or expired token")
			return
		}

		caller := access.NewCaller(claims.Subject, claims.TenantID, claims.Roles, m.config.PrivilegedRoles)
		if h := identityHolder(r.Context()); h != nil {
			h.userID = caller.UserID
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, reason, message string) {
	if m.recorder != nil {
		m.recorder.RecordAuthFailure(reason)
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="cronos"`)
	writeError(w, http.StatusUnauthorized, pkgerrors.ErrCodeUnauthorized, message)
}

func (m *AuthMiddleware) shouldSkip(path string) bool {
	for _, skip := range m.config.SkipPaths {
		if path == skip || strings.HasPrefix(path, strings.TrimSuffix(skip, "/")+"/") {
			return true
		}
	}
	return false
}

func extractBearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithCaller returns ctx carrying c.
func WithCaller(ctx context.Context, c access.Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, c)
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(ctx context.Context) (access.Caller, bool) {
	c, ok := ctx.Value(callerContextKey).(access.Caller)
	return c, ok
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code pkgerrors.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Code: string(code), Message: message}})
}
