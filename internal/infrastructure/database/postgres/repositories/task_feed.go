package repositories

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	appErrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TaskFeed
// ─────────────────────────────────────────────────────────────────────────────

// TaskRepository reads CRM tasks.
type TaskRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewTaskRepository constructs a TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool, logger logging.Logger) *TaskRepository {
	return &TaskRepository{pool: pool, logger: logger}
}

const listTasksSQL = `
SELECT t.id, t.tenant_id, t.owner_id, t.title, t.due_at, t.status, l.id, l.name
FROM crm_tasks t
LEFT JOIN leads l ON l.id = t.lead_id
WHERE ($1 = '' OR t.tenant_id = $1)
  AND ($2 = '' OR t.owner_id = $2)
  AND ($3 = '' OR t.status = $3)
  AND ($4::timestamptz IS NULL OR t.due_at >= $4)
  AND ($5::timestamptz IS NULL OR t.due_at <= $5)
ORDER BY t.due_at, t.id`

// ListTasks returns the tasks matching q.
func (r *TaskRepository) ListTasks(ctx context.Context, q agenda.TaskQuery) ([]agenda.Task, error) {
	rows, err := r.pool.Query(ctx, listTasksSQL, q.TenantID, q.OwnerID, string(q.Status), q.From, q.To)
	if err != nil {
		r.logger.Error("TaskRepository.ListTasks: query", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to list tasks")
	}
	defer rows.Close()

	var out []agenda.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan task")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate tasks")
	}
	return out, nil
}

func scanTask(row pgx.Row) (agenda.Task, error) {
	var (
		t        agenda.Task
		id       int64
		status   string
		leadID   *int64
		leadName *string
	)
	if err := row.Scan(&id, &t.TenantID, &t.OwnerID, &t.Title, &t.DueAt, &status, &leadID, &leadName); err != nil {
		return t, err
	}
	t.ID = strconv.FormatInt(id, 10)
	t.Status = agenda.TaskStatus(status)
	if leadID != nil {
		t.Lead = &agenda.LeadRef{ID: strconv.FormatInt(*leadID, 10)}
		if leadName != nil {
			t.Lead.Name = *leadName
		}
	}
	return t, nil
}
