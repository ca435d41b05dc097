package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "CRONOS"

// envKeys lists every key that may be supplied through the environment alone.
// viper only maps env vars for keys it already knows about, so LoadFromEnv
// needs them bound explicitly.
var envKeys = []string{
	"server.port", "server.mode", "server.read_timeout", "server.write_timeout", "server.shutdown_timeout",
	"database.host", "database.port", "database.user", "database.password", "database.db_name",
	"database.ssl_mode", "database.max_conns", "database.min_conns", "database.max_idle_conns",
	"database.conn_max_lifetime", "database.conn_max_idle_time", "database.migration_path", "database.auto_migrate",
	"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.pool_size", "redis.key_prefix",
	"redis.window_cache_ttl",
	"kafka.brokers", "kafka.digest_topic", "kafka.acks", "kafka.compression", "kafka.max_retries",
	"log.level", "log.format",
	"auth.jwt_secret", "auth.issuer", "auth.privileged_roles",
	"tenant.header_name", "tenant.query_param",
	"alerts.warning_days", "alerts.default_windows", "alerts.per_tenant_windows",
	"metrics.enabled", "metrics.namespace", "metrics.path",
	"digest.enabled", "digest.interval", "digest.publish_timeout", "digest.max_elapsed",
}

// newViper builds a Viper instance with YAML file type, the CRONOS_ env
// prefix, and "." → "_" key mapping (database.host → CRONOS_DATABASE_HOST).
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges CRONOS_* overrides, applies
// defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from CRONOS_* environment variables only.
// List values (kafka.brokers, alerts.default_windows) are space or comma
// separated.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrEnv loads configPath when it is non-empty and falls back to the
// environment otherwise.
func LoadOrEnv(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch re-parses configPath whenever it changes on disk and passes the new
// Config to onChange.  Invalid revisions, including an unreadable file at
// start, are reported to onError and skipped.
// Only settings that are safe to swap at runtime (log level) should be
// applied by the callback.
func Watch(configPath string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil && onError != nil {
		onError(fmt.Errorf("config: failed to read %s: %w", configPath, err))
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad wraps Load and panics on error.  For main() only.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
