package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MosandosSantos/cronos-sub000/internal/application/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/application/alerts"
	"github.com/MosandosSantos/cronos-sub000/internal/application/digest"
	"github.com/MosandosSantos/cronos-sub000/internal/config"
	"github.com/MosandosSantos/cronos-sub000/internal/domain/access"
	domainAgenda "github.com/MosandosSantos/cronos-sub000/internal/domain/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type mockAlerts struct{ mock.Mock }

func (m *mockAlerts) Summary(ctx context.Context, tenantID string) (*alerts.Summary, error) {
	args := m.Called(ctx, tenantID)
	s, _ := args.Get(0).(*alerts.Summary)
	return s, args.Error(1)
}

func (m *mockAlerts) List(ctx context.Context, tenantID, filter string) (*alerts.Listing, error) {
	args := m.Called(ctx, tenantID, filter)
	l, _ := args.Get(0).(*alerts.Listing)
	return l, args.Error(1)
}

func (m *mockAlerts) ListAt(ctx context.Context, tenantID, filter string, now time.Time) (*alerts.Listing, error) {
	args := m.Called(ctx, tenantID, filter, now)
	l, _ := args.Get(0).(*alerts.Listing)
	return l, args.Error(1)
}

type mockWindows struct{ mock.Mock }

func (m *mockWindows) Resolve(ctx context.Context, tenantID string) (*compliance.AlertWindows, error) {
	args := m.Called(ctx, tenantID)
	w, _ := args.Get(0).(*compliance.AlertWindows)
	return w, args.Error(1)
}

func (m *mockWindows) Update(ctx context.Context, tenantID string, offsets []int) (*compliance.AlertWindows, error) {
	args := m.Called(ctx, tenantID, offsets)
	w, _ := args.Get(0).(*compliance.AlertWindows)
	return w, args.Error(1)
}

type mockAgenda struct{ mock.Mock }

func (m *mockAgenda) ListAgenda(ctx context.Context, caller access.Caller, q agenda.Query) ([]domainAgenda.Entry, error) {
	args := m.Called(ctx, caller, q)
	e, _ := args.Get(0).([]domainAgenda.Entry)
	return e, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishTenant(ctx context.Context, tenantID string) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPublisher) PublishAll(ctx context.Context) (*digest.Result, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*digest.Result)
	return r, args.Error(1)
}

type fakeBackend struct {
	alerts    *mockAlerts
	agenda    *mockAgenda
	windows   *mockWindows
	publisher *mockPublisher
	closed    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		alerts:    new(mockAlerts),
		agenda:    new(mockAgenda),
		windows:   new(mockWindows),
		publisher: new(mockPublisher),
	}
}

func (f *fakeBackend) AlertsService() alerts.Service          { return f.alerts }
func (f *fakeBackend) AgendaService() agenda.Service          { return f.agenda }
func (f *fakeBackend) WindowResolver() alerts.WindowResolver { return f.windows }
func (f *fakeBackend) Publisher() (digest.Publisher, error)   { return f.publisher, nil }
func (f *fakeBackend) Close()                                 { f.closed = true }

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: 0123456789abcdef0123\n"), 0o600))
	return path
}

func run(t *testing.T, b *fakeBackend, args ...string) (string, error) {
	t.Helper()
	var factoryCalls int
	factory := func(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, error) {
		factoryCalls++
		require.NotNil(t, cfg)
		return b, nil
	}
	cmd := NewRootCommand(factory)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := cmd.ExecuteContext(context.Background())
	assert.LessOrEqual(t, factoryCalls, 1)
	return out.String(), err
}

// ---------------------------------------------------------------------------
// Root
// ---------------------------------------------------------------------------

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand(nil)
	assert.Equal(t, "cronos", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"alerts", "agenda", "digest", "migrate", "due"} {
		assert.True(t, names[want], want)
	}

	for _, flag := range []string{"config", "log-level", "output", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCommand_RejectsUnknownOutput(t *testing.T) {
	_, err := run(t, newFakeBackend(), "--output", "xml", "alerts", "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"A", "BB"}, [][]string{{"xyz", "1"}, {"q"}})
	assert.Equal(t, "A    BB\n---  --\nxyz  1\nq    \n", out)
	assert.Empty(t, FormatTable(nil, nil))
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func TestAlertsSummaryCmd(t *testing.T) {
	b := newFakeBackend()
	b.alerts.On("Summary", mock.Anything, "t-1").Return(&alerts.Summary{
		Windows: []int{30, 60, 90},
		Counts:  []int{2, 1, 0, 3},
	}, nil)

	out, err := run(t, b, "alerts", "summary", "--tenant", "t-1")
	require.NoError(t, err)
	assert.Contains(t, out, "expired")
	assert.Contains(t, out, "due3")
	assert.Contains(t, out, "total")
	assert.True(t, b.closed)
	b.alerts.AssertExpectations(t)
}

func TestAlertsListCmd_JSON(t *testing.T) {
	b := newFakeBackend()
	b.alerts.On("List", mock.Anything, "", "expired").Return(&alerts.Listing{
		Filter: "expired",
		Rows:   []alerts.Row{{ID: "document-4", DueDate: "2024-01-02", Bucket: "expired", DaysToDue: -3}},
		Total:  1,
	}, nil)

	out, err := run(t, b, "-o", "json", "alerts", "list", "--filter", "expired")
	require.NoError(t, err)

	var got alerts.Listing
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, "document-4", got.Rows[0].ID)
}

func TestAlertsWindowsSetCmd(t *testing.T) {
	b := newFakeBackend()
	b.windows.On("Update", mock.Anything, "t-1", []int{15, 45, 90}).Return(&compliance.AlertWindows{
		ID: 3, Scope: "tenant:t-1", Offsets: []int{15, 45, 90},
	}, nil)

	out, err := run(t, b, "alerts", "windows", "set", "--tenant", "t-1", "--offsets", "15, 45,90")
	require.NoError(t, err)
	assert.Contains(t, out, "tenant:t-1")
	assert.Contains(t, out, "15,45,90")
	b.windows.AssertExpectations(t)
}

func TestAlertsWindowsSetCmd_BadOffsets(t *testing.T) {
	b := newFakeBackend()
	_, err := run(t, b, "alerts", "windows", "set", "--offsets", "30,sixty")
	require.Error(t, err)
	b.windows.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestAlertsWindowsShowCmd(t *testing.T) {
	b := newFakeBackend()
	b.windows.On("Resolve", mock.Anything, "").Return(compliance.DefaultAlertWindows(compliance.GlobalScope), nil)

	out, err := run(t, b, "-o", "json", "alerts", "windows", "show")
	require.NoError(t, err)

	var got compliance.AlertWindows
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []int{30, 60, 90}, got.Offsets)
}

func TestAgendaCmd(t *testing.T) {
	b := newFakeBackend()
	b.agenda.On("ListAgenda", mock.Anything, operatorCaller, mock.MatchedBy(func(q agenda.Query) bool {
		return q.TenantID == "t-1" && q.Status == "open" &&
			q.From.Format("2006-01-02") == "2024-05-01" &&
			q.To.Format("2006-01-02 15:04") == "2024-05-31 23:59"
	})).Return([]domainAgenda.Entry{{
		Ref:      domainAgenda.Persisted{TaskID: "task-1"},
		Title:    "Follow up",
		DateTime: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
		Status:   domainAgenda.StatusOpen,
		Origin:   domainAgenda.OriginCRMTask,
		Lead:     &domainAgenda.LeadRef{ID: "l-1", Name: "ACME"},
	}}, nil)

	out, err := run(t, b, "agenda", "--tenant", "t-1", "--from", "2024-05-01", "--to", "2024-05-31", "--status", "open")
	require.NoError(t, err)
	assert.Contains(t, out, "task-1")
	assert.Contains(t, out, "ACME")
	b.agenda.AssertExpectations(t)
}

func TestAgendaCmd_BadDate(t *testing.T) {
	b := newFakeBackend()
	_, err := run(t, b, "agenda", "--from", "May 1")
	require.Error(t, err)
	b.agenda.AssertNotCalled(t, "ListAgenda", mock.Anything, mock.Anything, mock.Anything)
}

func TestDigestPublishCmd(t *testing.T) {
	t.Run("all tenants with a failure", func(t *testing.T) {
		b := newFakeBackend()
		b.publisher.On("PublishAll", mock.Anything).Return(&digest.Result{
			Tenants: 3, Published: 1, Skipped: 1, Failed: map[string]string{"t-3": "broker down"},
		}, nil)

		out, err := run(t, b, "digest", "publish")
		require.Error(t, err)
		assert.Contains(t, out, "failed: t-3")
	})

	t.Run("single tenant skipped", func(t *testing.T) {
		b := newFakeBackend()
		b.publisher.On("PublishTenant", mock.Anything, "t-1").Return(false, nil)

		out, err := run(t, b, "digest", "publish", "--tenant", "t-1")
		require.NoError(t, err)
		assert.Contains(t, out, "skipped")
	})
}

func TestMigrateCmd(t *testing.T) {
	origUp, origStatus := runMigrations, migrationStatus
	defer func() { runMigrations, migrationStatus = origUp, origStatus }()

	var gotDSN, gotDir string
	runMigrations = func(dsn, dir string) error {
		gotDSN, gotDir = dsn, dir
		return nil
	}
	migrationStatus = func(dsn, dir string) (uint, bool, error) { return 7, false, nil }

	out, err := run(t, newFakeBackend(), "migrate", "up", "--dir", "db/migrations")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")
	assert.Equal(t, "db/migrations", gotDir)
	assert.Contains(t, gotDSN, "postgres://")

	out, err = run(t, newFakeBackend(), "-o", "json", "migrate", "version")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":7,"dirty":false}`, out)
}

func TestDueCmd_NoConfigNeeded(t *testing.T) {
	cmd := NewRootCommand(nil)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"due", "--occurred-on", "2024-01-01", "--validity-days", "365", "--warning-days", "30", "--today", "2024-12-15"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "2024-12-31")
	assert.Contains(t, out.String(), "16")
	assert.Contains(t, out.String(), "DUE_SOON")
}

func TestDueCmd_Validation(t *testing.T) {
	cmd := NewRootCommand(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"due", "--occurred-on", "2024-01-01"})
	assert.Error(t, cmd.Execute())
}
