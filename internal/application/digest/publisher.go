// Package digest publishes a per-tenant alert digest to the event bus so
// downstream notifiers can remind tenants of upcoming and overdue items.
package digest

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/MosandosSantos/cronos-sub000/internal/application/alerts"
	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// EventTypeDigest is the envelope event type of a digest message.
const EventTypeDigest = "compliance.alerts.digest"

// Digest is the payload published for one tenant.
type Digest struct {
	TenantID    string         `json:"tenantId"`
	GeneratedAt time.Time      `json:"generatedAt"`
	Summary     alerts.Summary `json:"summary"`
	Urgent      []alerts.Row   `json:"urgent"`
}

// Result reports one PublishAll run.
type Result struct {
	Tenants   int               `json:"tenants"`
	Published int               `json:"published"`
	Skipped   int               `json:"skipped"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// EventEmitter delivers one keyed event.
type EventEmitter interface {
	Emit(ctx context.Context, eventType, key string, payload interface{}) error
}

// Lock guards a run against concurrent workers.
type Lock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// Publisher
// ---------------------------------------------------------------------------

// Publisher builds and emits digests.
type Publisher interface {
	// PublishTenant emits the digest of one tenant.  published is false when
	// the tenant had nothing inside the alert horizon.
	PublishTenant(ctx context.Context, tenantID string) (published bool, err error)

	// PublishAll emits a digest for every tenant.  A failing tenant does not
	// stop the run; its error is reported in Result.Failed.
	PublishAll(ctx context.Context) (*Result, error)
}

// Config holds tunables.
type Config struct {
	// MaxUrgent caps the number of expired and due1 rows carried per digest.
	MaxUrgent int

	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

type publisherImpl struct {
	alerts  alerts.Service
	tenants compliance.TenantLister
	emitter EventEmitter
	lock    Lock
	logger  logging.Logger
	cfg     Config
}

// NewPublisher constructs a Publisher.  lock may be nil.
func NewPublisher(
	alertsSvc alerts.Service,
	tenants compliance.TenantLister,
	emitter EventEmitter,
	lock Lock,
	logger logging.Logger,
	cfg Config,
) Publisher {
	if cfg.MaxUrgent <= 0 {
		cfg.MaxUrgent = 50
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 30 * time.Second
	}
	return &publisherImpl{
		alerts:  alertsSvc,
		tenants: tenants,
		emitter: emitter,
		lock:    lock,
		logger:  logger.Named("digest"),
		cfg:     cfg,
	}
}

func (p *publisherImpl) PublishAll(ctx context.Context) (*Result, error) {
	if p.lock != nil {
		ok, err := p.lock.TryLock(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeCacheError, "failed to acquire digest lock")
		}
		if !ok {
			p.logger.Info("digest run skipped, another worker holds the lock")
			return &Result{}, nil
		}
		defer func() {
			if err := p.lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("digest lock release failed", logging.Err(err))
			}
		}()
	}

	ids, err := p.tenants.ListTenantIDs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeDatabaseError, "failed to list tenants")
	}

	res := &Result{Tenants: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		published, err := p.PublishTenant(ctx, id)
		switch {
		case err != nil:
			if res.Failed == nil {
				res.Failed = make(map[string]string)
			}
			res.Failed[id] = err.Error()
		case published:
			res.Published++
		default:
			res.Skipped++
		}
	}

	p.logger.Info("digest run finished",
		logging.Int("tenants", res.Tenants),
		logging.Int("published", res.Published),
		logging.Int("skipped", res.Skipped),
		logging.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (p *publisherImpl) PublishTenant(ctx context.Context, tenantID string) (bool, error) {
	if tenantID == "" {
		return false, pkgerrors.InvalidParam("tenant id is required")
	}

	d, err := p.build(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if d.Summary.Total() == 0 {
		return false, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialInterval
	b.MaxElapsedTime = p.cfg.MaxElapsed

	attempt := 0
	op := func() error {
		attempt++
		err := p.emitter.Emit(ctx, EventTypeDigest, tenantID, d)
		if err != nil && pkgerrors.IsValidation(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Warn("digest emit failed, retrying",
			logging.String("tenant_id", tenantID),
			logging.Int("attempt", attempt),
			logging.Duration("wait", wait),
			logging.Err(err),
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		p.logger.Error("digest emit gave up", logging.String("tenant_id", tenantID), logging.Err(err))
		return false, pkgerrors.Wrap(err, pkgerrors.ErrCodeMessagingError, "failed to publish digest")
	}

	p.logger.Debug("digest published",
		logging.String("tenant_id", tenantID),
		logging.Int("total", d.Summary.Total()),
		logging.Int("urgent", len(d.Urgent)),
	)
	return true, nil
}

// build lists the urgent rows at the summary's GeneratedAt so a run that
// straddles midnight still reports rows matching the counts.
func (p *publisherImpl) build(ctx context.Context, tenantID string) (*Digest, error) {
	sum, err := p.alerts.Summary(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	d := &Digest{TenantID: tenantID, GeneratedAt: sum.GeneratedAt, Summary: *sum}
	if sum.Total() == 0 {
		return d, nil
	}

	for _, filter := range []string{compliance.BucketExpired.Name(), compliance.Bucket(1).Name()} {
		listing, err := p.alerts.ListAt(ctx, tenantID, filter, sum.GeneratedAt)
		if err != nil {
			return nil, err
		}
		for _, row := range listing.Rows {
			if len(d.Urgent) >= p.cfg.MaxUrgent {
				return d, nil
			}
			d.Urgent = append(d.Urgent, row)
		}
	}
	return d, nil
}
