//go:build integration

package repositories_test

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MosandosSantos/cronos-sub000/internal/config"
	"github.com/MosandosSantos/cronos-sub000/internal/domain/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/database/postgres"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/database/postgres/repositories"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Environment
// ─────────────────────────────────────────────────────────────────────────────

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "..", "migrations")
}

type testEnv struct {
	pool *pgxpool.Pool
	conn *postgres.Connection
}

// startPostgres launches a PostgreSQL 16 container and applies the migrations.
func startPostgres(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "cronos_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		DBName:   "cronos_test",
		SSLMode:  "disable",
	}
	log := logging.NewNopLogger()

	conn, err := postgres.NewConnection(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.Migrate(migrationsDir(t)))

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/cronos_test?sslmode=disable", host, port.Port())
	version, dirty, err := postgres.MigrationStatus(dsn, migrationsDir(t))
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 4, version)

	pool, err := postgres.NewPool(ctx, cfg, log)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	seed(t, pool.Pool)
	return &testEnv{pool: pool.Pool, conn: conn}
}

func seed(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
INSERT INTO tenants (id, name) VALUES ('t1', 'ACME'), ('t2', 'Globex');
INSERT INTO tenants (id, name, active) VALUES ('t3', 'Gone', FALSE);
INSERT INTO employees (id, tenant_id, full_name) VALUES (1, 't1', 'Ana'), (2, 't2', 'Zed');
INSERT INTO occupational_exams (tenant_id, employee_id, kind, exam_type, performed_on, validity_days) VALUES
  ('t1', 1, 'medical',  'admission', '2025-01-01', 30),
  ('t2', 2, 'medical',  'admission', '2025-01-01', 30),
  ('t1', 1, 'periodic', 'periodic',  '2024-06-01', 365);
INSERT INTO trainings (tenant_id, employee_id, title, completed_on, validity_days) VALUES
  ('t1', 1, 'NR-35', '2024-02-01', 365);
INSERT INTO company_documents (tenant_id, title, issued_on, validity_days) VALUES
  ('t1', 'PGR', '2024-01-20', 366);
INSERT INTO leads (id, tenant_id, name) VALUES (1, 't1', 'Initech');
INSERT INTO crm_tasks (tenant_id, owner_id, lead_id, title, due_at, status) VALUES
  ('t1', 'u1', 1,    'Call Initech', '2025-01-15 10:00:00+00', 'open'),
  ('t1', 'u1', NULL, 'Send quote',   '2025-01-16 09:00:00+00', 'done'),
  ('t1', 'u2', NULL, 'Visit',        '2025-01-17 09:00:00+00', 'open'),
  ('t2', 'u9', NULL, 'Other tenant', '2025-01-15 09:00:00+00', 'open');
INSERT INTO contracts (tenant_id, client_name, renewal_date) VALUES
  ('t1', 'Initech', '2025-01-25'),
  ('t2', 'Umbrella', '2025-01-25');
`)
	require.NoError(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestFeeds_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	env := startPostgres(t)
	ctx := context.Background()
	log := logging.NewNopLogger()

	jan1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jan31 := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)

	t.Run("record sources compute due dates and honour tenant", func(t *testing.T) {
		from, to := jan1, jan31
		var got []compliance.Record
		for _, src := range repositories.NewRecordSources(env.conn, log) {
			records, err := src.ListDue(ctx, compliance.RecordQuery{TenantID: "t1", DueFrom: &from, DueTo: &to})
			require.NoError(t, err)
			got = append(got, records...)
		}
		require.Len(t, got, 3)
		for _, r := range got {
			assert.Equal(t, "t1", r.TenantID)
		}
		assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), got[0].DueDate)
		assert.Equal(t, "Ana", got[0].SubjectLabel)
	})

	t.Run("alert windows keep insertion order", func(t *testing.T) {
		repo := repositories.NewPostgresWindowRepo(env.conn, log)
		first := compliance.DefaultAlertWindows(compliance.GlobalScope)
		second := &compliance.AlertWindows{Scope: compliance.GlobalScope, Offsets: []int{5, 10}}
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		rows, err := repo.FindByScope(ctx, compliance.GlobalScope)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, first.ID, rows[0].ID)
		assert.Equal(t, []int{30, 60, 90}, rows[0].Offsets)
	})

	t.Run("tasks filter by owner and status", func(t *testing.T) {
		tasks := repositories.NewTaskRepository(env.pool, log)
		got, err := tasks.ListTasks(ctx, agenda.TaskQuery{TenantID: "t1", OwnerID: "u1", From: &jan1, To: &jan31})
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.NotNil(t, got[0].Lead)
		assert.Equal(t, "Initech", got[0].Lead.Name)
		assert.Nil(t, got[1].Lead)

		open, err := tasks.ListTasks(ctx, agenda.TaskQuery{TenantID: "t1", Status: agenda.StatusOpen, From: &jan1, To: &jan31})
		require.NoError(t, err)
		assert.Len(t, open, 2)
	})

	t.Run("tasks with open bounds", func(t *testing.T) {
		tasks := repositories.NewTaskRepository(env.pool, log)
		all, err := tasks.ListTasks(ctx, agenda.TaskQuery{TenantID: "t1"})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		cut := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
		before, err := tasks.ListTasks(ctx, agenda.TaskQuery{TenantID: "t1", To: &cut})
		require.NoError(t, err)
		require.Len(t, before, 1)
		assert.Equal(t, "Call Initech", before[0].Title)

		after, err := tasks.ListTasks(ctx, agenda.TaskQuery{TenantID: "t1", From: &cut})
		require.NoError(t, err)
		assert.Len(t, after, 2)
	})

	t.Run("contracts and tenants", func(t *testing.T) {
		contracts := repositories.NewContractRepository(env.pool, log)
		renewals, err := contracts.ListRenewals(ctx, "t1", &jan1, &jan31)
		require.NoError(t, err)
		require.Len(t, renewals, 1)
		assert.Equal(t, "Initech", renewals[0].ClientName)

		unbounded, err := contracts.ListRenewals(ctx, "", nil, nil)
		require.NoError(t, err)
		assert.Len(t, unbounded, 2)

		early, err := contracts.ListRenewals(ctx, "t1", nil, &jan1)
		require.NoError(t, err)
		assert.Empty(t, early)

		ids, err := repositories.NewTenantRepository(env.pool).ListTenantIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"t1", "t2"}, ids)
	})
}
