// Package config provides configuration loading, defaults, and validation for
// the cronos services (apiserver, worker, CLI).
package config

import (
	"fmt"
	"time"

	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
)

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Database DatabaseConfig    `mapstructure:"database"`
	Redis    RedisConfig       `mapstructure:"redis"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	Log      logging.LogConfig `mapstructure:"log"`
	Auth     AuthConfig        `mapstructure:"auth"`
	Tenant   TenantConfig      `mapstructure:"tenant"`
	Alerts   AlertsConfig      `mapstructure:"alerts"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Digest   DigestConfig      `mapstructure:"digest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL settings shared by the database/sql
// connection and the pgx pool.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns a libpq-style URL for the database.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// RedisConfig holds cache settings.  Disabled means resolved alert windows are
// read from Postgres on every request.
type RedisConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	WindowCacheTTL time.Duration `mapstructure:"window_cache_ttl"`
}

// KafkaConfig holds producer settings for the digest publisher.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	DigestTopic  string        `mapstructure:"digest_topic"`
	Acks         string        `mapstructure:"acks"` // "none" | "one" | "all"
	Compression  string        `mapstructure:"compression"`
	MaxRetries   int           `mapstructure:"max_retries"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	JWTSecret       string   `mapstructure:"jwt_secret"`
	Issuer          string   `mapstructure:"issuer"`
	PrivilegedRoles []string `mapstructure:"privileged_roles"`
	SkipPaths       []string `mapstructure:"skip_paths"`
}

// TenantConfig controls how the requested tenant scope is read from requests.
type TenantConfig struct {
	HeaderName string `mapstructure:"header_name"`
	QueryParam string `mapstructure:"query_param"`
}

// AlertsConfig holds due-date classification settings.
type AlertsConfig struct {
	// WarningDays is the DUE_SOON threshold used for row status.
	WarningDays int `mapstructure:"warning_days"`

	// DefaultWindows are the offsets written when a scope has no row yet.
	DefaultWindows []int `mapstructure:"default_windows"`

	// PerTenantWindows resolves windows per tenant instead of one global row.
	PerTenantWindows bool `mapstructure:"per_tenant_windows"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// DigestConfig holds settings for the periodic per-tenant digest worker.
type DigestConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interval       time.Duration `mapstructure:"interval"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	MaxElapsed     time.Duration `mapstructure:"max_elapsed"`
}

// Validate checks the configuration for values the services cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if c.Digest.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker when digest is enabled")
		}
		if c.Kafka.DigestTopic == "" {
			return fmt.Errorf("config: kafka.digest_topic is required when digest is enabled")
		}
		if c.Digest.Interval <= 0 {
			return fmt.Errorf("config: digest.interval must be positive")
		}
	}

	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 16 bytes")
	}

	if c.Alerts.WarningDays < 0 {
		return fmt.Errorf("config: alerts.warning_days must be >= 0, got %d", c.Alerts.WarningDays)
	}
	if len(c.Alerts.DefaultWindows) == 0 {
		return fmt.Errorf("config: alerts.default_windows must not be empty")
	}
	prev := 0
	for i, w := range c.Alerts.DefaultWindows {
		if w <= prev {
			return fmt.Errorf("config: alerts.default_windows[%d]=%d must be positive and greater than the previous offset", i, w)
		}
		prev = w
	}

	return nil
}
