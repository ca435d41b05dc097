package config

import "time"

// ── Server ──
const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 20 * time.Second
)

// ── Database ──
const (
	DefaultDatabaseHost            = "localhost"
	DefaultDatabasePort            = 5432
	DefaultDatabaseUser            = "cronos"
	DefaultDatabaseName            = "cronos"
	DefaultDatabaseSSLMode         = "disable"
	DefaultDatabaseMaxConns        = 20
	DefaultDatabaseMinConns        = 2
	DefaultDatabaseMaxIdleConns    = 5
	DefaultDatabaseConnMaxLifetime = 30 * time.Minute
	DefaultDatabaseConnMaxIdleTime = 5 * time.Minute
	DefaultDatabaseMigrationPath   = "migrations"
)

// ── Redis ──
const (
	DefaultRedisAddr           = "localhost:6379"
	DefaultRedisPoolSize       = 10
	DefaultRedisDialTimeout    = 5 * time.Second
	DefaultRedisReadTimeout    = 3 * time.Second
	DefaultRedisWriteTimeout   = 3 * time.Second
	DefaultRedisKeyPrefix      = "cronos:"
	DefaultRedisWindowCacheTTL = 10 * time.Minute
)

// ── Kafka ──
const (
	DefaultKafkaDigestTopic  = "compliance.alerts.digest"
	DefaultKafkaAcks         = "one"
	DefaultKafkaMaxRetries   = 3
	DefaultKafkaBatchTimeout = 500 * time.Millisecond
	DefaultKafkaWriteTimeout = 10 * time.Second
)

// ── Log ──
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ── Auth / tenant ──
const (
	DefaultAuthIssuer       = "cronos"
	DefaultTenantHeaderName = "X-Tenant-ID"
	DefaultTenantQueryParam = "tenantId"
)

// ── Alerts ──
const DefaultAlertsWarningDays = 30

// DefaultAlertWindows are the offsets (days) written for a scope without a row.
var DefaultAlertWindows = []int{30, 60, 90}

// DefaultPrivilegedRoles see every tenant and every task owner.
var DefaultPrivilegedRoles = []string{"admin", "staff"}

// ── Metrics ──
const (
	DefaultMetricsNamespace = "cronos"
	DefaultMetricsPath      = "/metrics"
)

// ── Digest ──
const (
	DefaultDigestInterval       = time.Hour
	DefaultDigestPublishTimeout = 30 * time.Second
	DefaultDigestMaxElapsed     = 2 * time.Minute
)

// ApplyDefaults fills zero-valued fields with the defaults above.  Booleans are
// left untouched since false is a meaningful setting.
func ApplyDefaults(cfg *Config) {
	// ── Server ──
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// ── Database ──
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDatabaseHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDatabasePort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDatabaseUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDatabaseName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDatabaseSSLMode
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDatabaseMaxConns
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = DefaultDatabaseMinConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDatabaseMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultDatabaseConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = DefaultDatabaseConnMaxIdleTime
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = DefaultDatabaseMigrationPath
	}

	// ── Redis ──
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisReadTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisWriteTimeout
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.WindowCacheTTL == 0 {
		cfg.Redis.WindowCacheTTL = DefaultRedisWindowCacheTTL
	}

	// ── Kafka ──
	if cfg.Kafka.DigestTopic == "" {
		cfg.Kafka.DigestTopic = DefaultKafkaDigestTopic
	}
	if cfg.Kafka.Acks == "" {
		cfg.Kafka.Acks = DefaultKafkaAcks
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = DefaultKafkaMaxRetries
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = DefaultKafkaWriteTimeout
	}

	// ── Log ──
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Auth / tenant ──
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = DefaultAuthIssuer
	}
	if len(cfg.Auth.PrivilegedRoles) == 0 {
		cfg.Auth.PrivilegedRoles = append([]string(nil), DefaultPrivilegedRoles...)
	}
	if cfg.Tenant.HeaderName == "" {
		cfg.Tenant.HeaderName = DefaultTenantHeaderName
	}
	if cfg.Tenant.QueryParam == "" {
		cfg.Tenant.QueryParam = DefaultTenantQueryParam
	}

	// ── Alerts ──
	if cfg.Alerts.WarningDays == 0 {
		cfg.Alerts.WarningDays = DefaultAlertsWarningDays
	}
	if len(cfg.Alerts.DefaultWindows) == 0 {
		cfg.Alerts.DefaultWindows = append([]int(nil), DefaultAlertWindows...)
	}

	// ── Metrics ──
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Digest ──
	if cfg.Digest.Interval == 0 {
		cfg.Digest.Interval = DefaultDigestInterval
	}
	if cfg.Digest.PublishTimeout == 0 {
		cfg.Digest.PublishTimeout = DefaultDigestPublishTimeout
	}
	if cfg.Digest.MaxElapsed == 0 {
		cfg.Digest.MaxElapsed = DefaultDigestMaxElapsed
	}
}
