// Command worker publishes per-tenant alert digests to Kafka on a fixed
// interval and exposes health and metrics endpoints for its probes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MosandosSantos/cronos-sub000/internal/application/digest"
	"github.com/MosandosSantos/cronos-sub000/internal/bootstrap"
	"github.com/MosandosSantos/cronos-sub000/internal/config"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/messaging/kafka"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/MosandosSantos/cronos-sub000/internal/interfaces/http"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/handlers"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/middleware"
)

const defaultHealthPort = 8081

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: CRONOS_* environment)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port of the health and metrics endpoints")
	runOnce := flag.Bool("once", false, "publish a single run and exit")
	ensureTopics := flag.Bool("ensure-topics", false, "create the digest topics before the first run")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	logger = logger.Named("worker")

	if !cfg.Digest.Enabled {
		logger.Info("digest disabled, nothing to do")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{WithMetrics: true})
	if err != nil {
		logger.Fatal("failed to initialize dependencies", logging.Err(err))
	}
	defer c.Close()

	if *ensureTopics {
		if err := createTopics(ctx, cfg.Kafka, logger); err != nil {
			logger.Fatal("failed to create topics", logging.Err(err))
		}
	}

	publisher, err := c.Publisher()
	if err != nil {
		logger.Fatal("failed to initialize digest publisher", logging.Err(err))
	}

	if *runOnce {
		runDigest(ctx, publisher, c.Metrics, cfg.Digest, logger)
		return
	}

	probe := startProbeServer(c, *healthPort, logger)
	defer func() {
		if err := probe.Stop(context.Background()); err != nil {
			logger.Warn("probe server shutdown error", logging.Err(err))
		}
	}()

	logger.Info("digest worker started",
		logging.Duration("interval", cfg.Digest.Interval),
		logging.String("topic", cfg.Kafka.DigestTopic),
	)

	ticker := time.NewTicker(cfg.Digest.Interval)
	defer ticker.Stop()

	runDigest(ctx, publisher, c.Metrics, cfg.Digest, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Info("digest worker stopped")
			return
		case <-ticker.C:
			runDigest(ctx, publisher, c.Metrics, cfg.Digest, logger)
		}
	}
}

// runDigest performs one bounded PublishAll and records its outcome.
func runDigest(ctx context.Context, p digest.Publisher, m *prometheus.AppMetrics, cfg config.DigestConfig, logger logging.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, cfg.PublishTimeout+cfg.MaxElapsed)
	defer cancel()

	start := time.Now()
	res, err := p.PublishAll(runCtx)
	run := prometheus.DigestRun{Duration: time.Since(start), Err: err, At: time.Now()}
	if res != nil {
		run.Published, run.Skipped, run.Failed = res.Published, res.Skipped, len(res.Failed)
	}
	m.RecordDigestRun(run)

	if err != nil {
		logger.Error("digest run failed", logging.Err(err))
		return
	}
	logger.Info("digest run finished",
		logging.Int("tenants", res.Tenants),
		logging.Int("published", res.Published),
		logging.Int("skipped", res.Skipped),
		logging.Int("failed", len(res.Failed)),
		logging.Duration("duration", run.Duration),
	)
}

func createTopics(ctx context.Context, cfg config.KafkaConfig, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(cfg.Brokers, logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, kafka.DigestTopics(cfg.DigestTopic))
}

func startProbeServer(c *bootstrap.Container, port int, logger logging.Logger) *httpserver.Server {
	checkers := []handlers.HealthChecker{c.Conn, c.Pool}
	if c.Redis != nil {
		checkers = append(checkers, c.Redis)
	}

	routerCfg := httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(version, c.Metrics, checkers...),
		Logging:       middleware.DefaultLoggingConfig(),
		Logger:        logger,
	}
	if c.Collector != nil {
		routerCfg.MetricsHandler = c.Collector.Handler()
		routerCfg.MetricsPath = c.Config.Metrics.Path
	}

	srv := httpserver.NewServer(config.ServerConfig{Port: port}, httpserver.NewRouter(routerCfg), logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("probe server error", logging.Err(err))
		}
	}()
	return srv
}
