package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MosandosSantos/cronos-sub000/internal/application/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/application/alerts"
	"github.com/MosandosSantos/cronos-sub000/internal/domain/access"
	domainAgenda "github.com/MosandosSantos/cronos-sub000/internal/domain/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/handlers"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/middleware"
)

const testSecret = "router-test-secret"

// fakeAlerts records the tenant scope it was called with.
type fakeAlerts struct {
	tenant string
	filter string
}

func (f *fakeAlerts) Summary(ctx context.Context, tenantID string) (*alerts.Summary, error) {
	f.tenant = tenantID
	return &alerts.Summary{Windows: []int{30, 60, 90}, Counts: []int{0, 1, 0, 0}}, nil
}

func (f *fakeAlerts) List(ctx context.Context, tenantID, filter string) (*alerts.Listing, error) {
	f.tenant, f.filter = tenantID, filter
	return &alerts.Listing{Filter: filter, Rows: []alerts.Row{}}, nil
}

func (f *fakeAlerts) ListAt(ctx context.Context, tenantID, filter string, _ time.Time) (*alerts.Listing, error) {
	return f.List(ctx, tenantID, filter)
}

type fakeAgenda struct {
	caller access.Caller
}

func (f *fakeAgenda) ListAgenda(ctx context.Context, caller access.Caller, q agenda.Query) ([]domainAgenda.Entry, error) {
	f.caller = caller
	return nil, nil
}

type countingRecorder struct {
	routes []string
}

func (c *countingRecorder) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.routes = append(c.routes, route)
}

func signToken(t *testing.T, sub, tenant string, roles ...string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		TenantID: tenant,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

type routerFixture struct {
	handler  http.Handler
	alerts   *fakeAlerts
	agenda   *fakeAgenda
	recorder *countingRecorder
}

func newRouterFixture() *routerFixture {
	log := logging.NewNopLogger()
	f := &routerFixture{alerts: &fakeAlerts{}, agenda: &fakeAgenda{}, recorder: &countingRecorder{}}
	f.handler = NewRouter(RouterConfig{
		AlertsHandler: handlers.NewAlertsHandler(f.alerts, log),
		AgendaHandler: handlers.NewAgendaHandler(f.agenda, time.UTC, log),
		HealthHandler: handlers.NewHealthHandler("test", nil),
		AuthMiddleware: middleware.NewAuthMiddleware(
			middleware.NewJWTValidator(testSecret, ""),
			middleware.AuthConfig{PrivilegedRoles: []string{"admin"}},
			nil, log,
		),
		Metrics:        f.recorder,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		Logger:         log,
	})
	return f
}

func (f *routerFixture) do(method, target, token string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestNewRouter_HealthEndpoints_NoAuth(t *testing.T) {
	f := newRouterFixture()

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "", nil).Code)

	w := f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())
}

func TestNewRouter_APIv1_RequiresAuth(t *testing.T) {
	f := newRouterFixture()

	for _, path := range []string{"/api/v1/alerts/summary", "/api/v1/alerts", "/api/v1/agenda"} {
		w := f.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestNewRouter_TenantCallerPinnedToOwnTenant(t *testing.T) {
	f := newRouterFixture()
	token := signToken(t, "u-1", "t-1", "member")

	w := f.do(http.MethodGet, "/api/v1/alerts/summary", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t-1", f.alerts.tenant)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["due1"])
}

func TestNewRouter_CrossTenantForbidden(t *testing.T) {
	f := newRouterFixture()
	token := signToken(t, "u-1", "t-1", "member")

	w := f.do(http.MethodGet, "/api/v1/alerts?filter=expired", token, map[string]string{"X-Tenant-ID": "t-2"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.alerts.tenant)
}

func TestNewRouter_PrivilegedCallerSeesAllTenants(t *testing.T) {
	f := newRouterFixture()
	token := signToken(t, "staff-1", "", "admin")

	w := f.do(http.MethodGet, "/api/v1/alerts?filter=due2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", f.alerts.tenant)
	assert.Equal(t, "due2", f.alerts.filter)

	w = f.do(http.MethodGet, "/api/v1/alerts/summary?tenantId=t-9", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t-9", f.alerts.tenant)
}

func TestNewRouter_AgendaReceivesCaller(t *testing.T) {
	f := newRouterFixture()
	token := signToken(t, "u-1", "t-1", "member")

	w := f.do(http.MethodGet, "/api/v1/agenda", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
	assert.Equal(t, "u-1", f.agenda.caller.UserID)
	assert.False(t, f.agenda.caller.Privileged)
}

func TestNewRouter_MetricsUseRoutePattern(t *testing.T) {
	f := newRouterFixture()
	token := signToken(t, "u-1", "t-1")

	f.do(http.MethodGet, "/api/v1/alerts/summary", token, nil)
	f.do(http.MethodGet, "/nowhere", "", nil)

	assert.Equal(t, []string{"/api/v1/alerts/summary", "unmatched"}, f.recorder.routes)
}

func TestNewRouter_NilHandlers_NoPanic(t *testing.T) {
	h := NewRouter(RouterConfig{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
