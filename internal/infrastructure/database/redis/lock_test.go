package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

func newTestLock(t *testing.T, opts LockOptions) (*RunLock, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	client := NewClientWithUniversal(db, "test:", logging.NewNopLogger())
	return NewRunLock(client, "digest", opts, logging.NewNopLogger()), mock
}

func TestRunLock_KeyAndValue(t *testing.T) {
	m, _ := newTestLock(t, LockOptions{})
	assert.Equal(t, "test:lock:digest", m.key)
	assert.NotEmpty(t, m.token)

	other, _ := newTestLock(t, LockOptions{})
	assert.NotEqual(t, m.token, other.token)
}

func TestRunLock_TryLockAndUnlock(t *testing.T) {
	m, mock := newTestLock(t, LockOptions{TTL: time.Minute})
	ctx := context.Background()

	mock.ExpectSetNX("test:lock:digest", m.token, time.Minute).SetVal(true)
	ok, err := m.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectEvalSha(releaseScript.Hash(), []string{"test:lock:digest"}, m.token).SetVal(int64(1))
	require.NoError(t, m.Unlock(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLock_TryLockHeldElsewhere(t *testing.T) {
	m, mock := newTestLock(t, LockOptions{TTL: time.Minute})

	mock.ExpectSetNX("test:lock:digest", m.token, time.Minute).SetVal(false)
	ok, err := m.TryLock(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLock_TryLockError(t *testing.T) {
	m, mock := newTestLock(t, LockOptions{TTL: time.Minute})

	mock.ExpectSetNX("test:lock:digest", m.token, time.Minute).SetErr(errors.New("down"))
	ok, err := m.TryLock(context.Background())
	assert.False(t, ok)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func TestRunLock_LockGivesUpAfterRetries(t *testing.T) {
	m, mock := newTestLock(t, LockOptions{TTL: time.Minute, Attempts: 2, RetryDelay: time.Millisecond})

	mock.ExpectSetNX("test:lock:digest", m.token, time.Minute).SetVal(false)
	mock.ExpectSetNX("test:lock:digest", m.token, time.Minute).SetVal(false)

	assert.Equal(t, ErrLockNotAcquired, m.Lock(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLock_LockRetriesUntilFree(t *testing.T) {
	m, mock := newTestLock(t, LockOptions{TTL: time.Minute, Attempts: 3, RetryDelay: time.Millisecond})

	mock.ExpectSetNX("test:lock:digest", m.token, time.Minute).SetVal(false)
	mock.ExpectSetNX("test:lock:digest", m.token, time.Minute).SetVal(true)

	assert.NoError(t, m.Lock(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLock_UnlockNotHeld(t *testing.T) {
	m, mock := newTestLock(t, LockOptions{})

	mock.ExpectEvalSha(releaseScript.Hash(), []string{"test:lock:digest"}, m.token).SetVal(int64(0))
	assert.Equal(t, ErrLockNotHeld, m.Unlock(context.Background()))
}

func TestRunLock_Extend(t *testing.T) {
	m, mock := newTestLock(t, LockOptions{})

	mock.ExpectEvalSha(refreshScript.Hash(), []string{"test:lock:digest"}, m.token, int64(5000)).SetVal(int64(1))
	ok, err := m.Extend(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunLock_Defaults(t *testing.T) {
	m, _ := newTestLock(t, LockOptions{})
	assert.Equal(t, 30*time.Second, m.opts.TTL)
	assert.Equal(t, 30, m.opts.Attempts)
	assert.Equal(t, 100*time.Millisecond, m.opts.RetryDelay)
	assert.False(t, m.opts.KeepAlive)
}

func TestRunLock_LockStopsOnRedisError(t *testing.T) {
	m, mock := newTestLock(t, LockOptions{TTL: time.Minute, Attempts: 5, RetryDelay: time.Millisecond})

	mock.ExpectSetNX("test:lock:digest", m.token, time.Minute).SetErr(errors.New("down"))

	err := m.Lock(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
	assert.NoError(t, mock.ExpectationsWereMet())
}
