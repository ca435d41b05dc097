package redis

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

// compare-and-delete / compare-and-expire on the owner token
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// LockOptions tunes a RunLock. Zero fields take the defaults.
type LockOptions struct {
	TTL time.Duration // default 30s

	// Attempts and RetryDelay only apply to Lock.
	Attempts   int           // default 30
	RetryDelay time.Duration // default 100ms

	// KeepAlive refreshes the TTL every TTL/3 while the lock is held.
	KeepAlive bool
}

// RunLock is a single-owner SET NX lock. One instance holds one token, so
// TryLock from a second process fails until Unlock or expiry.
type RunLock struct {
	client *Client
	key    string
	token  string
	opts   LockOptions
	logger logging.Logger

	mu       sync.Mutex
	stopKeep context.CancelFunc
	keepDone chan struct{}
}

func NewRunLock(client *Client, name string, opts LockOptions, log logging.Logger) *RunLock {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 30
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	return &RunLock{
		client: client,
		key:    client.Prefix() + "lock:" + name,
		token:  uuid.NewString(),
		opts:   opts,
		logger: log.Named("lock").With(logging.String("lock", name)),
	}
}

// TryLock makes a single attempt.
func (l *RunLock) TryLock(ctx context.Context) (bool, error) {
	if l.client.isClosed() {
		return false, ErrClientClosed
	}
	ok, err := l.client.rdb.SetNX(ctx, l.key, l.token, l.opts.TTL).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock")
	}
	if ok && l.opts.KeepAlive {
		l.startKeepAlive()
	}
	return ok, nil
}

// Lock retries TryLock every RetryDelay, up to Attempts times.
func (l *RunLock) Lock(ctx context.Context) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(l.opts.RetryDelay), uint64(l.opts.Attempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return ErrLockNotAcquired
		}
		return nil
	}, b)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (l *RunLock) Unlock(ctx context.Context) error {
	l.stopKeepAlive()
	n, err := releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Extend resets the TTL if the lock is still ours.
func (l *RunLock) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	n, err := refreshScript.Run(ctx, l.client.rdb, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *RunLock) startKeepAlive() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopKeep != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.stopKeep = cancel
	l.keepDone = make(chan struct{})
	go l.keepAlive(ctx, l.keepDone)
}

func (l *RunLock) stopKeepAlive() {
	l.mu.Lock()
	cancel, done := l.stopKeep, l.keepDone
	l.stopKeep, l.keepDone = nil, nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (l *RunLock) keepAlive(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(l.opts.TTL / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ok, err := l.Extend(ctx, l.opts.TTL)
			switch {
			case err != nil:
				if ctx.Err() == nil {
					l.logger.Error("failed to extend lock", logging.Err(err))
				}
				return
			case !ok:
				l.logger.Warn("lock lost before release")
				return
			}
		}
	}
}
