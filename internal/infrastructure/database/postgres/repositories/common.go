// Package repositories implements the domain read models on PostgreSQL.
// Compliance record sources and the alert window store use database/sql;
// the CRM feeds use a pgx pool.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
)

// queryExecutor abstracts sql.DB and sql.Tx.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// nullDate converts an optional bound to a DATE parameter.
func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: compliance.DateOf(*t), Valid: true}
}
