package repositories

import (
	"context"

	"github.com/lib/pq"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/database/postgres"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

type postgresWindowRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresWindowRepo returns the alert window store.
func NewPostgresWindowRepo(conn *postgres.Connection, log logging.Logger) compliance.WindowRepository {
	return &postgresWindowRepo{
		conn:     conn,
		log:      log,
		executor: conn.DB(),
	}
}

func (r *postgresWindowRepo) FindByScope(ctx context.Context, scope string) ([]compliance.AlertWindows, error) {
	rows, err := r.executor.QueryContext(ctx,
		`SELECT id, scope, offsets, created_at FROM alert_windows WHERE scope = $1 ORDER BY id`, scope)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query alert windows")
	}
	defer rows.Close()

	var out []compliance.AlertWindows
	for rows.Next() {
		w, err := scanWindows(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan alert windows")
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate alert windows")
	}
	return out, nil
}

func (r *postgresWindowRepo) Create(ctx context.Context, w *compliance.AlertWindows) error {
	err := r.executor.QueryRowContext(ctx,
		`INSERT INTO alert_windows (scope, offsets) VALUES ($1, $2) RETURNING id, created_at`,
		w.Scope, pq.Array(toInt64s(w.Offsets)),
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert alert windows")
	}
	r.log.Debug("alert windows inserted", logging.Int64("id", w.ID), logging.String("scope", w.Scope))
	return nil
}

func (r *postgresWindowRepo) Update(ctx context.Context, w *compliance.AlertWindows) error {
	res, err := r.executor.ExecContext(ctx,
		`UPDATE alert_windows SET offsets = $1, updated_at = NOW() WHERE id = $2`,
		pq.Array(toInt64s(w.Offsets)), w.ID,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update alert windows")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update alert windows")
	}
	if n == 0 {
		return errors.New(errors.ErrCodeAlertWindowsNotFound, "alert windows not found")
	}
	return nil
}

func scanWindows(sc scanner) (*compliance.AlertWindows, error) {
	var (
		w       compliance.AlertWindows
		offsets pq.Int64Array
	)
	if err := sc.Scan(&w.ID, &w.Scope, &offsets, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.Offsets = make([]int, len(offsets))
	for i, o := range offsets {
		w.Offsets[i] = int(o)
	}
	return &w, nil
}

func toInt64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}
