// Package alerts classifies tenant compliance records into alert buckets and
// serves the summary and listing views.
package alerts

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// BucketCount is one bucket of a Summary.  FromDays is nil for the expired
// bucket, which is unbounded in the past.
type BucketCount struct {
	Bucket   string `json:"bucket"`
	FromDays *int   `json:"fromDays"`
	ToDays   int    `json:"toDays"`
	Count    int    `json:"count"`
}

// Summary counts the records of every bucket.  It serialises as
// {"expired":n,"due1":n,...,"buckets":[...]}.
type Summary struct {
	Windows     []int
	Counts      []int
	GeneratedAt time.Time
}

// Count returns the number of records in b.
func (s Summary) Count(b compliance.Bucket) int {
	if int(b) < 0 || int(b) >= len(s.Counts) {
		return 0
	}
	return s.Counts[b]
}

// Total is the number of records inside the horizon.
func (s Summary) Total() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Buckets expands the counts with their day bounds.
func (s Summary) Buckets() []BucketCount {
	out := make([]BucketCount, 0, len(s.Counts))
	for i, c := range s.Counts {
		b := compliance.Bucket(i)
		bc := BucketCount{Bucket: b.Name(), Count: c}
		if b == compliance.BucketExpired {
			bc.ToDays = -1
		} else {
			from := 0
			if i > 1 {
				from = s.Windows[i-2] + 1
			}
			bc.FromDays = &from
			bc.ToDays = s.Windows[i-1]
		}
		out = append(out, bc)
	}
	return out
}

// MarshalJSON emits one key per bucket name plus the expanded bucket list.
func (s Summary) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(s.Counts)+1)
	for i, c := range s.Counts {
		m[compliance.Bucket(i).Name()] = c
	}
	m["buckets"] = s.Buckets()
	return json.Marshal(m)
}

// Row is one entry of the alert listing.
type Row struct {
	ID           string                `json:"id"`
	SourceID     string                `json:"sourceId"`
	Kind         compliance.RecordKind `json:"kind"`
	Category     string                `json:"category"`
	Label        string                `json:"label"`
	SubjectLabel string                `json:"subjectLabel"`
	TenantID     string                `json:"tenantId"`
	DueDate      string                `json:"dueDate"`
	Status       compliance.DueStatus  `json:"status"`
	DaysToDue    int                   `json:"daysToDue"`
	Bucket       string                `json:"bucket"`

	due time.Time
}

// Listing is the filtered, sorted alert listing.  Filter is empty when no
// bucket filter was applied.
type Listing struct {
	Filter string `json:"filter,omitempty"`
	Rows   []Row  `json:"rows"`
	Total  int    `json:"total"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service serves alert views.  An empty tenantID covers every tenant and is
// only ever passed for privileged callers.
type Service interface {
	// Summary counts the records of each bucket.
	Summary(ctx context.Context, tenantID string) (*Summary, error)

	// List returns the records of one bucket, or of every bucket when filter
	// is empty or unrecognised.
	List(ctx context.Context, tenantID, filter string) (*Listing, error)

	// ListAt is List evaluated at now instead of the service clock.  Pass a
	// Summary's GeneratedAt to get rows consistent with its counts.
	ListAt(ctx context.Context, tenantID, filter string, now time.Time) (*Listing, error)
}

// ServiceConfig holds tunables.
type ServiceConfig struct {
	WarningDays int
	Observer    SourceObserver
}

type serviceImpl struct {
	sources  []compliance.RecordSource
	resolver WindowResolver
	clock    compliance.Clock
	logger   logging.Logger
	cfg      ServiceConfig
}

// NewService constructs a Service over sources.
func NewService(
	sources []compliance.RecordSource,
	resolver WindowResolver,
	clock compliance.Clock,
	logger logging.Logger,
	cfg ServiceConfig,
) Service {
	if clock == nil {
		clock = compliance.SystemClock{}
	}
	if cfg.WarningDays <= 0 {
		cfg.WarningDays = compliance.DefaultWarningDays
	}
	return &serviceImpl{
		sources:  sources,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
	}
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type classified struct {
	record compliance.Record
	bucket compliance.Bucket
	days   int
}

func (s *serviceImpl) Summary(ctx context.Context, tenantID string) (*Summary, error) {
	now := s.clock.Now()
	windows, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	from, to := windows.HorizonRange(now)
	items, err := s.collect(ctx, tenantID, now, windows, compliance.RecordQuery{TenantID: tenantID, DueFrom: from, DueTo: to})
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Windows:     append([]int(nil), windows.Offsets...),
		Counts:      make([]int, len(windows.Offsets)+1),
		GeneratedAt: now,
	}
	for _, it := range items {
		sum.Counts[it.bucket]++
	}

	s.logger.Debug("alert summary computed",
		logging.String("tenant_id", tenantID),
		logging.Int("total", sum.Total()),
	)
	return sum, nil
}

func (s *serviceImpl) List(ctx context.Context, tenantID, filter string) (*Listing, error) {
	return s.ListAt(ctx, tenantID, filter, s.clock.Now())
}

func (s *serviceImpl) ListAt(ctx context.Context, tenantID, filter string, now time.Time) (*Listing, error) {
	windows, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	q := compliance.RecordQuery{TenantID: tenantID}
	bucket, filtered := compliance.Bucket(0), false
	if filter != "" {
		bucket, filtered = windows.ParseBucket(filter)
		if !filtered {
			s.logger.Debug("unknown alert filter ignored", logging.String("filter", filter))
		}
	}
	if filtered {
		q.DueFrom, q.DueTo = windows.DueRange(bucket, now)
	} else {
		q.DueFrom, q.DueTo = windows.HorizonRange(now)
	}

	items, err := s.collect(ctx, tenantID, now, windows, q)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Rows: make([]Row, 0, len(items))}
	if filtered {
		listing.Filter = bucket.Name()
	}
	for _, it := range items {
		if filtered && it.bucket != bucket {
			continue
		}
		listing.Rows = append(listing.Rows, s.toRow(it))
	}
	sortRows(listing.Rows)
	listing.Total = len(listing.Rows)
	return listing, nil
}

// collect queries every source concurrently and classifies the results
// against a single now.  Records past the horizon or owned by another tenant
// are dropped.
func (s *serviceImpl) collect(
	ctx context.Context,
	tenantID string,
	now time.Time,
	windows *compliance.AlertWindows,
	q compliance.RecordQuery,
) ([]classified, error) {
	var (
		mu  sync.Mutex
		out []classified
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			start := time.Now()
			records, err := src.ListDue(gctx, q)
			if s.cfg.Observer != nil {
				s.cfg.Observer.ObserveSourceQuery(string(src.Kind()), time.Since(start), err)
			}
			if err != nil {
				s.logger.Error("record source failed",
					logging.String("kind", string(src.Kind())),
					logging.Err(err),
				)
				return pkgerrors.Wrap(err, pkgerrors.ErrCodeRecordSourceFailed, "failed to load "+string(src.Kind())+" records")
			}

			local := make([]classified, 0, len(records))
			for _, r := range records {
				if tenantID != "" && r.TenantID != tenantID {
					s.logger.Warn("record source returned foreign tenant row",
						logging.String("kind", string(src.Kind())),
						logging.String("source_id", r.SourceID),
					)
					continue
				}
				days := compliance.DaysToDue(r.DueDate, now)
				b, ok := windows.Classify(days)
				if !ok {
					continue
				}
				local = append(local, classified{record: r, bucket: b, days: days})
			}

			mu.Lock()
			out = append(out, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *serviceImpl) toRow(it classified) Row {
	r := it.record
	due := compliance.DateOf(r.DueDate)
	return Row{
		ID:           string(r.Kind) + "-" + r.SourceID,
		SourceID:     r.SourceID,
		Kind:         r.Kind,
		Category:     r.Kind.Category(),
		Label:        r.Label,
		SubjectLabel: r.SubjectLabel,
		TenantID:     r.TenantID,
		DueDate:      due.Format("2006-01-02"),
		Status:       compliance.StatusFor(it.days, s.cfg.WarningDays),
		DaysToDue:    it.days,
		Bucket:       it.bucket.Name(),
		due:          due,
	}
}

// sortRows orders by due date, then kind, subject and source id so that
// concurrent collection never changes the output order.
func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.due.Equal(b.due) {
			return a.due.Before(b.due)
		}
		if ra, rb := a.Kind.Rank(), b.Kind.Rank(); ra != rb {
			return ra < rb
		}
		if a.SubjectLabel != b.SubjectLabel {
			return a.SubjectLabel < b.SubjectLabel
		}
		return a.SourceID < b.SourceID
	})
}
