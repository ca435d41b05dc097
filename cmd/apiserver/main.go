// Command apiserver serves the alert and agenda HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MosandosSantos/cronos-sub000/internal/bootstrap"
	"github.com/MosandosSantos/cronos-sub000/internal/config"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	httpserver "github.com/MosandosSantos/cronos-sub000/internal/interfaces/http"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/handlers"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/http/middleware"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: CRONOS_* environment)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	logger = logger.Named("apiserver")

	if *configPath != "" {
		config.Watch(*configPath, func(next *config.Config) {
			if ls, ok := logging.Default().(logging.LevelSetter); ok {
				ls.SetLevel(next.Log.Level)
				logger.Info("log level reloaded", logging.String("level", next.Log.Level))
			}
		}, func(err error) {
			logger.Warn("configuration reload failed", logging.Err(err))
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{WithMetrics: true})
	if err != nil {
		logger.Fatal("failed to initialize dependencies", logging.Err(err))
	}
	defer c.Close()

	if cfg.Database.AutoMigrate {
		if err := c.Conn.Migrate(cfg.Database.MigrationPath); err != nil {
			logger.Fatal("migrations failed", logging.Err(err))
		}
	}

	routerCfg := httpserver.RouterConfig{
		AlertsHandler: handlers.NewAlertsHandler(c.Alerts, logger),
		AgendaHandler: handlers.NewAgendaHandler(c.Agenda, time.Local, logger),
		HealthHandler: handlers.NewHealthHandler(version, c.Metrics, healthCheckers(c)...),
		AuthMiddleware: middleware.NewAuthMiddleware(
			middleware.NewJWTValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
			middleware.AuthConfig{SkipPaths: cfg.Auth.SkipPaths, PrivilegedRoles: cfg.Auth.PrivilegedRoles},
			c.Metrics,
			logger,
		),
		Tenant:  middleware.TenantConfig{HeaderName: cfg.Tenant.HeaderName, QueryParam: cfg.Tenant.QueryParam},
		Logging: middleware.DefaultLoggingConfig(),
		Metrics: c.Metrics,
		Logger:  logger,
	}
	if c.Collector != nil {
		routerCfg.MetricsHandler = c.Collector.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", logging.Err(err))
		}
	case <-ctx.Done():
		if err := srv.Stop(context.Background()); err != nil {
			logger.Error("HTTP server shutdown error", logging.Err(err))
		}
	}
	logger.Info("apiserver stopped")
}
