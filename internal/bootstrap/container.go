// Package bootstrap builds the shared object graph used by the apiserver,
// the digest worker and the operator CLI.
package bootstrap

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/MosandosSantos/cronos-sub000/internal/application/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/application/alerts"
	"github.com/MosandosSantos/cronos-sub000/internal/application/digest"
	"github.com/MosandosSantos/cronos-sub000/internal/config"
	"github.com/MosandosSantos/cronos-sub000/internal/domain/compliance"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/database/postgres"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/database/postgres/repositories"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/database/redis"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/messaging/kafka"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/prometheus"
)

// digestLockName is the redis run lock held for the duration of a digest run.
const digestLockName = "digest:publish_all"

// Container owns every long-lived dependency. Close releases them in reverse
// order of creation.
type Container struct {
	Config *config.Config
	Logger logging.Logger

	Conn  *postgres.Connection
	Pool  *postgres.Pool
	Redis *redis.Client

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Alerts  alerts.Service
	Windows alerts.WindowResolver
	Agenda  agenda.Service

	producer *kafka.Producer
	closers  []func() error
}

// Options tunes how much of the graph New builds.
type Options struct {
	// DialTimeout bounds the retries of the initial database and redis dials.
	DialTimeout time.Duration

	// WithMetrics registers the prometheus collectors. The CLI leaves it off.
	WithMetrics bool
}

// New dials Postgres (both drivers) and, when enabled, Redis, then assembles
// the application services.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts Options) (*Container, error) {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 30 * time.Second
	}
	c := &Container{Config: cfg, Logger: logger}

	if err := c.initMetrics(opts.WithMetrics); err != nil {
		return nil, err
	}

	conn, err := dial(ctx, logger, "postgres", opts.DialTimeout, func() (*postgres.Connection, error) {
		return postgres.NewConnection(cfg.Database, logger.Named("postgres"))
	})
	if err != nil {
		return nil, err
	}
	c.Conn = conn
	c.closers = append(c.closers, conn.Close)

	pool, err := dial(ctx, logger, "postgres_pool", opts.DialTimeout, func() (*postgres.Pool, error) {
		return postgres.NewPool(ctx, cfg.Database, logger.Named("pgx"))
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Pool = pool
	c.closers = append(c.closers, func() error { pool.Close(); return nil })

	var cache alerts.CachePort
	if cfg.Redis.Enabled {
		rc, err := dial(ctx, logger, "redis", opts.DialTimeout, func() (*redis.Client, error) {
			return redis.NewClient(cfg.Redis, logger.Named("redis"))
		})
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Redis = rc
		c.closers = append(c.closers, rc.Close)
		cache = redis.NewRedisCache(rc, logger, redis.WithCacheObserver(c.Metrics))
	}

	c.Windows = alerts.NewWindowResolver(
		repositories.NewPostgresWindowRepo(conn, logger.Named("window_repo")),
		cache,
		logger.Named("windows"),
		alerts.WindowResolverConfig{
			PerTenant:      cfg.Alerts.PerTenantWindows,
			CacheTTL:       cfg.Redis.WindowCacheTTL,
			DefaultOffsets: cfg.Alerts.DefaultWindows,
		},
	)

	sources := repositories.NewRecordSources(conn, logger.Named("record_source"))
	c.Alerts = alerts.NewService(sources, c.Windows, compliance.SystemClock{}, logger.Named("alerts"), alerts.ServiceConfig{
		WarningDays: cfg.Alerts.WarningDays,
		Observer:    c.Metrics,
	})
	c.Agenda = agenda.NewService(
		repositories.NewTaskRepository(pool.Pool, logger.Named("task_repo")),
		repositories.NewContractRepository(pool.Pool, logger.Named("contract_repo")),
		sources,
		logger.Named("agenda"),
	)
	return c, nil
}

func (c *Container) initMetrics(enabled bool) error {
	if !enabled || !c.Config.Metrics.Enabled {
		// unregistered collectors keep the recorders usable
		c.Metrics = prometheus.NewAppMetrics(prometheus.NewNoopCollector())
		return nil
	}
	col, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            c.Config.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, c.Logger)
	if err != nil {
		return err
	}
	c.Collector = col
	c.Metrics = prometheus.NewAppMetrics(col)
	return nil
}

// Publisher builds the digest publisher on first use. It needs Kafka, and
// Redis for the run lock when Redis is enabled.
func (c *Container) Publisher() (digest.Publisher, error) {
	if c.producer == nil {
		p, err := kafka.NewProducer(c.Config.Kafka, c.Logger.Named("kafka"))
		if err != nil {
			return nil, err
		}
		c.producer = p
		c.closers = append(c.closers, p.Close)
	}

	var lock digest.Lock
	if c.Redis != nil {
		lock = redis.NewRunLock(c.Redis, digestLockName, redis.LockOptions{
			TTL:       c.Config.Digest.MaxElapsed + c.Config.Digest.PublishTimeout,
			KeepAlive: true,
		}, c.Logger)
	}

	return digest.NewPublisher(
		c.Alerts,
		repositories.NewTenantRepository(c.Pool.Pool),
		kafka.NewEventSink(c.producer, c.Config.Kafka.DigestTopic),
		lock,
		c.Logger,
		digest.Config{MaxElapsed: c.Config.Digest.MaxElapsed},
	), nil
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("close failed", logging.Err(err))
		}
	}
	c.closers = nil
}

// dial retries open with exponential backoff until it succeeds, ctx ends or
// maxElapsed passes.
func dial[T any](ctx context.Context, logger logging.Logger, name string, maxElapsed time.Duration, open func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = maxElapsed

	attempt := 0
	return backoff.RetryNotifyWithData[T](open, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		attempt++
		logger.Warn("dependency not reachable, retrying",
			logging.String("dependency", name),
			logging.Int("attempt", attempt),
			logging.Duration("next_in", next),
			logging.Err(err),
		)
	})
}
