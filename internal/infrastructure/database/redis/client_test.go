package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MosandosSantos/cronos-sub000/internal/config"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1"}, logging.NewNopLogger())
	assert.Nil(t, client)
	assert.Equal(t, ErrConnectionFailed, err)
}

func TestApplyDefaults(t *testing.T) {
	cfg := config.RedisConfig{}
	applyDefaults(&cfg)

	assert.Positive(t, cfg.PoolSize)
	assert.NotZero(t, cfg.DialTimeout)
	assert.NotZero(t, cfg.ReadTimeout)
	assert.NotZero(t, cfg.WriteTimeout)
	assert.Equal(t, DefaultKeyPrefix, cfg.KeyPrefix)

	cfg = config.RedisConfig{KeyPrefix: "tenant-a:", PoolSize: 4}
	applyDefaults(&cfg)
	assert.Equal(t, "tenant-a:", cfg.KeyPrefix)
	assert.Equal(t, 4, cfg.PoolSize)
}

func TestClient_Check(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := NewClientWithUniversal(db, "", logging.NewNopLogger())
	assert.Equal(t, "redis", client.Name())
	assert.Equal(t, DefaultKeyPrefix, client.Prefix())

	mock.ExpectPing().SetVal("PONG")
	require.NoError(t, client.Check(context.Background()))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	err := client.Check(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_Close(t *testing.T) {
	db, _ := redismock.NewClientMock()
	client := NewClientWithUniversal(db, "test:", logging.NewNopLogger())

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
	assert.Equal(t, ErrClientClosed, client.Ping(context.Background()))
}
