package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// WindowResolver returns the alert windows in force for a tenant.
type WindowResolver interface {
	// Resolve returns the stored windows, creating the default row on first
	// read.  When concurrent first reads left several rows behind, the row
	// with the lowest id wins.
	Resolve(ctx context.Context, tenantID string) (*compliance.AlertWindows, error)

	// Update replaces the offsets in force for tenantID's scope.
	Update(ctx context.Context, tenantID string, offsets []int) (*compliance.AlertWindows, error)
}

// WindowResolverConfig holds tunables.
type WindowResolverConfig struct {
	PerTenant      bool
	CacheTTL       time.Duration
	DefaultOffsets []int
}

type windowResolverImpl struct {
	repo   compliance.WindowRepository
	cache  CachePort
	logger logging.Logger
	cfg    WindowResolverConfig
}

// NewWindowResolver constructs a WindowResolver.  cache may be nil.
func NewWindowResolver(repo compliance.WindowRepository, cache CachePort, logger logging.Logger, cfg WindowResolverConfig) WindowResolver {
	if len(cfg.DefaultOffsets) == 0 {
		cfg.DefaultOffsets = compliance.DefaultOffsets
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &windowResolverImpl{repo: repo, cache: cache, logger: logger, cfg: cfg}
}

// scopeFor maps a tenant to its window scope.
func (r *windowResolverImpl) scopeFor(tenantID string) string {
	if r.cfg.PerTenant && tenantID != "" {
		return "tenant:" + tenantID
	}
	return compliance.GlobalScope
}

func cacheKey(scope string) string { return "alert_windows:" + scope }

// loadFailure marks errors raised by the store behind the cache.
type loadFailure struct{ err error }

func (e loadFailure) Error() string { return e.err.Error() }
func (e loadFailure) Unwrap() error { return e.err }

func (r *windowResolverImpl) Resolve(ctx context.Context, tenantID string) (*compliance.AlertWindows, error) {
	scope := r.scopeFor(tenantID)
	if r.cache == nil {
		return r.load(ctx, scope)
	}

	var w compliance.AlertWindows
	err := r.cache.GetOrSet(ctx, cacheKey(scope), &w, r.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		loaded, err := r.load(ctx, scope)
		if err != nil {
			return nil, loadFailure{err: err}
		}
		return loaded, nil
	})
	if err == nil && w.Validate() == nil {
		return &w, nil
	}
	var lf loadFailure
	if errors.As(err, &lf) {
		return nil, lf.err
	}

	// Cache down or holding garbage: read the store.
	r.logger.Warn("alert windows cache unusable", logging.String("scope", scope), logging.Err(err))
	return r.load(ctx, scope)
}

func (r *windowResolverImpl) load(ctx context.Context, scope string) (*compliance.AlertWindows, error) {
	rows, err := r.repo.FindByScope(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to read alert windows")
	}

	if len(rows) == 0 {
		def, err := compliance.NewAlertWindows(scope, r.cfg.DefaultOffsets)
		if err != nil {
			return nil, err
		}
		if err := r.repo.Create(ctx, def); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to create default alert windows")
		}
		r.logger.Info("default alert windows created",
			logging.String("scope", scope),
			logging.Any("offsets", def.Offsets),
		)
		// A concurrent reader may have inserted its own row; re-read so both
		// settle on the same one.
		rows, err = r.repo.FindByScope(ctx, scope)
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to read alert windows")
		}
		if len(rows) == 0 {
			return def, nil
		}
	}

	if len(rows) > 1 {
		ids := make([]int64, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		r.logger.Warn("duplicate alert window rows, using lowest id",
			logging.String("scope", scope),
			logging.Any("ids", ids),
		)
	}

	w := pickLowest(rows)
	if err := w.Validate(); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeAlertWindowsInvalid, "stored alert windows are invalid")
	}
	return w, nil
}

func pickLowest(rows []compliance.AlertWindows) *compliance.AlertWindows {
	best := rows[0]
	for _, r := range rows[1:] {
		if r.ID < best.ID {
			best = r
		}
	}
	return &best
}

func (r *windowResolverImpl) Update(ctx context.Context, tenantID string, offsets []int) (*compliance.AlertWindows, error) {
	scope := r.scopeFor(tenantID)
	w, err := compliance.NewAlertWindows(scope, offsets)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeValidation, "invalid alert windows")
	}

	rows, err := r.repo.FindByScope(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to read alert windows")
	}
	if len(rows) == 0 {
		if err := r.repo.Create(ctx, w); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to create alert windows")
		}
	} else {
		w.ID = pickLowest(rows).ID
		if err := r.repo.Update(ctx, w); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to update alert windows")
		}
	}

	if r.cache != nil {
		if err := r.cache.Delete(ctx, cacheKey(scope)); err != nil {
			r.logger.Warn("alert windows cache invalidation failed", logging.String("scope", scope), logging.Err(err))
		}
	}
	r.logger.Info("alert windows updated", logging.String("scope", scope), logging.Any("offsets", w.Offsets))
	return w, nil
}
