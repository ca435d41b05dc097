// Package agenda merges CRM tasks with entries derived from contract
// renewals and compliance due dates into one calendar feed.
package agenda

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/access"
	domainAgenda "github.com/MosandosSantos/cronos-sub000/internal/domain/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Query is an agenda request.  A zero From or To leaves that side of the
// range open.
type Query struct {
	TenantID string
	From     time.Time
	To       time.Time
	Status   string
	OwnerID  string
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service lists the unified agenda.
type Service interface {
	// ListAgenda returns the entries visible to caller in [From, To], sorted
	// by instant.  Derived entries are only added when the status filter
	// admits open entries.
	ListAgenda(ctx context.Context, caller access.Caller, q Query) ([]domainAgenda.Entry, error)
}

type serviceImpl struct {
	tasks     domainAgenda.TaskFeed
	contracts domainAgenda.ContractFeed
	sources   []compliance.RecordSource
	logger    logging.Logger
}

// NewService constructs a Service.  contracts may be nil.
func NewService(
	tasks domainAgenda.TaskFeed,
	contracts domainAgenda.ContractFeed,
	sources []compliance.RecordSource,
	logger logging.Logger,
) Service {
	return &serviceImpl{
		tasks:     tasks,
		contracts: contracts,
		sources:   sources,
		logger:    logger,
	}
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

func (s *serviceImpl) ListAgenda(ctx context.Context, caller access.Caller, q Query) ([]domainAgenda.Entry, error) {
	status, err := domainAgenda.ParseTaskStatus(q.Status)
	if err != nil {
		return nil, err
	}

	from, to, err := resolveRange(q.From, q.To)
	if err != nil {
		return nil, err
	}

	tenantID, err := access.ResolveTenant(caller, q.TenantID)
	if err != nil {
		return nil, err
	}
	ownerID, err := access.ResolveOwner(caller, q.OwnerID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListTasks(ctx, domainAgenda.TaskQuery{
		TenantID: tenantID,
		OwnerID:  ownerID,
		Status:   status,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeAgendaFeedFailed, "failed to load tasks")
	}

	entries := make([]domainAgenda.Entry, 0, len(tasks))
	for _, t := range tasks {
		entries = append(entries, t.ToEntry())
	}

	if status != domainAgenda.StatusDone {
		derived, err := s.derivedEntries(ctx, tenantID, from, to)
		if err != nil {
			return nil, err
		}
		entries = append(entries, derived...)
	}

	sortEntries(entries)

	s.logger.Debug("agenda listed",
		logging.String("tenant_id", tenantID),
		logging.String("owner_id", ownerID),
		logging.Int("tasks", len(tasks)),
		logging.Int("entries", len(entries)),
	)
	return entries, nil
}

// resolveRange turns zero bounds into open (nil) ones.  Only a closed range
// can be inverted.
func resolveRange(from, to time.Time) (*time.Time, *time.Time, error) {
	var lo, hi *time.Time
	if !from.IsZero() {
		lo = &from
	}
	if !to.IsZero() {
		hi = &to
	}
	if lo != nil && hi != nil && hi.Before(*lo) {
		return nil, nil, pkgerrors.New(pkgerrors.ErrCodeAgendaRangeInvalid, "'to' must not be before 'from'")
	}
	return lo, hi, nil
}

// derivedEntries loads contract renewals and compliance due dates falling on
// a calendar day inside [from, to].  A nil bound is open.
func (s *serviceImpl) derivedEntries(ctx context.Context, tenantID string, from, to *time.Time) ([]domainAgenda.Entry, error) {
	dayFrom, dayTo := dayOf(from), dayOf(to)
	q := compliance.RecordQuery{TenantID: tenantID, DueFrom: dayFrom, DueTo: dayTo}

	var (
		mu  sync.Mutex
		out []domainAgenda.Entry
	)
	add := func(e domainAgenda.Entry) {
		mu.Lock()
		out = append(out, e)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	if s.contracts != nil {
		g.Go(func() error {
			renewals, err := s.contracts.ListRenewals(gctx, tenantID, dayFrom, dayTo)
			if err != nil {
				return pkgerrors.Wrap(err, pkgerrors.ErrCodeAgendaFeedFailed, "failed to load contract renewals")
			}
			for _, r := range renewals {
				if tenantID != "" && r.TenantID != tenantID {
					continue
				}
				add(r.ToEntry())
			}
			return nil
		})
	}

	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			records, err := src.ListDue(gctx, q)
			if err != nil {
				return pkgerrors.Wrap(err, pkgerrors.ErrCodeAgendaFeedFailed, "failed to load "+string(src.Kind())+" records")
			}
			for _, r := range records {
				if tenantID != "" && r.TenantID != tenantID {
					continue
				}
				if !q.Contains(r.DueDate) {
					continue
				}
				add(domainAgenda.RecordEntry(r))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("agenda feed failed", logging.Err(err))
		return nil, err
	}
	return out, nil
}

func dayOf(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := compliance.DateOf(*t)
	return &d
}

// sortEntries orders by instant; ties keep CRM tasks first, then sort by id.
func sortEntries(entries []domainAgenda.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.DateTime.Equal(b.DateTime) {
			return a.DateTime.Before(b.DateTime)
		}
		_, aTask := a.Ref.(domainAgenda.Persisted)
		_, bTask := b.Ref.(domainAgenda.Persisted)
		if aTask != bTask {
			return aTask
		}
		return a.ID() < b.ID()
	})
}
