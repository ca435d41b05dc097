package alerts

import (
	"context"
	"time"
)

// CachePort abstracts the cache used for resolved alert windows.  GetOrSet
// must run loader at most once per key across concurrent callers.
type CachePort interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	Delete(ctx context.Context, keys ...string) error
}

// SourceObserver receives the outcome of every record source query.
type SourceObserver interface {
	ObserveSourceQuery(kind string, elapsed time.Duration, err error)
}
