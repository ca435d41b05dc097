package repositories

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	appErrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// ContractRepository reads contract renewal dates and the tenant list.
type ContractRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewContractRepository constructs a ContractRepository.
func NewContractRepository(pool *pgxpool.Pool, logger logging.Logger) *ContractRepository {
	return &ContractRepository{pool: pool, logger: logger}
}

// ListRenewals returns active contracts renewing in [from, to] (calendar
// dates).  A nil bound is open.
func (r *ContractRepository) ListRenewals(ctx context.Context, tenantID string, from, to *time.Time) ([]agenda.ContractRenewal, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, tenant_id, client_name, renewal_date
FROM contracts
WHERE active
  AND ($1 = '' OR tenant_id = $1)
  AND ($2::date IS NULL OR renewal_date >= $2::date)
  AND ($3::date IS NULL OR renewal_date <= $3::date)
ORDER BY renewal_date, id`,
		tenantID, nullDate(from), nullDate(to))
	if err != nil {
		r.logger.Error("ContractRepository.ListRenewals: query", logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to list contract renewals")
	}
	defer rows.Close()

	var out []agenda.ContractRenewal
	for rows.Next() {
		var (
			c  agenda.ContractRenewal
			id int64
		)
		if err := rows.Scan(&id, &c.TenantID, &c.ClientName, &c.RenewalDate); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan contract")
		}
		c.ContractID = strconv.FormatInt(id, 10)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate contracts")
	}
	return out, nil
}

// TenantRepository lists tenants for the digest worker.
type TenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository constructs a TenantRepository.
func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

// ListTenantIDs returns the active tenant ids in order.
func (r *TenantRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM tenants WHERE active ORDER BY id`)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to list tenants")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan tenant")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate tenants")
	}
	return ids, nil
}
