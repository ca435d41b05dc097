package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockWindowRepo struct {
	mock.Mock
}

func (m *mockWindowRepo) FindByScope(ctx context.Context, scope string) ([]compliance.AlertWindows, error) {
	args := m.Called(ctx, scope)
	if v := args.Get(0); v != nil {
		return v.([]compliance.AlertWindows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockWindowRepo) Create(ctx context.Context, w *compliance.AlertWindows) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockWindowRepo) Update(ctx context.Context, w *compliance.AlertWindows) error {
	return m.Called(ctx, w).Error(0)
}

// memCache stores JSON like the redis cache does.  GetOrSet holds the lock
// while loading, so concurrent misses collapse into one load.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	err  error
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

var errMiss = errors.New("miss")

func (c *memCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return errMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	c.sets++
	return nil
}

func (c *memCache) GetOrSet(ctx context.Context, key string, dest interface{}, _ time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if b, ok := c.data[key]; ok {
		return json.Unmarshal(b, dest)
	}
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	if v == nil {
		return errMiss
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	c.sets++
	return json.Unmarshal(b, dest)
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// staticResolver always returns the same windows.
type staticResolver struct {
	w   *compliance.AlertWindows
	err error
}

func (r staticResolver) Resolve(context.Context, string) (*compliance.AlertWindows, error) {
	return r.w, r.err
}

func (r staticResolver) Update(context.Context, string, []int) (*compliance.AlertWindows, error) {
	return r.w, r.err
}

// fakeSource filters an in-memory slice the way the SQL sources do.
type fakeSource struct {
	kind    compliance.RecordKind
	records []compliance.Record
	err     error
	queries []compliance.RecordQuery
	mu      sync.Mutex
}

func (f *fakeSource) Kind() compliance.RecordKind { return f.kind }

func (f *fakeSource) ListDue(_ context.Context, q compliance.RecordQuery) ([]compliance.Record, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []compliance.Record
	for _, r := range f.records {
		if q.TenantID != "" && r.TenantID != q.TenantID {
			continue
		}
		if !q.Contains(r.DueDate) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type recordingObserver struct {
	mu    sync.Mutex
	kinds []string
	errs  int
}

func (o *recordingObserver) ObserveSourceQuery(kind string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kinds = append(o.kinds, kind)
	if err != nil {
		o.errs++
	}
}
