package config

import (
	"strings"
	"time"
)

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"engage"`
	Password string `env:"PASSWORD" envDefault:"engage"`
	Name     string `env:"NAME"     envDefault:"engage"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // 'require' in production

	// Pool limits for database/sql.
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT"   envDefault:"5s"`

	// RunMigrationsOnStart controls whether the application applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// Sanitize applies guardrails to pool settings.
func (c *DBConfig) Sanitize() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns < 0 {
		c.MaxIdleConns = 0
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime < 0 {
		c.ConnMaxLifetime = 0
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}

// RedisConfig contains Redis configuration. Sentinel and cluster modes are
// mutually exclusive; cluster wins when both are set.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`

	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
	// Disabled runs the service without the settings cache and backfill lock.
	Disabled bool `env:"DISABLED" envDefault:"false"`
}

// Configured reports whether Redis is enabled and has an endpoint for the
// selected mode.
func (c *RedisConfig) Configured() bool {
	if c == nil || c.Disabled {
		return false
	}
	uri := strings.TrimSpace(c.URI) != ""
	switch {
	case c.UseCluster:
		return hasNonBlank(c.ClusterNodes) || uri
	case c.UseSentinel:
		return hasNonBlank(c.SentinelNodes)
	default:
		return uri
	}
}

// Sanitize applies guardrails to Redis settings.
func (c *RedisConfig) Sanitize() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}

func hasNonBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
