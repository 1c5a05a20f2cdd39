package config

import (
	"strings"
	"time"
)

// ConversionConfig contains conversion evaluation and backfill configuration.
type ConversionConfig struct {
	// SettingsPath is the JMESPath expression locating conversion settings in a
	// journey's settings document.
	SettingsPath string `env:"CONVERSION_SETTINGS_PATH" envDefault:"conversionTracking"`

	// SettingsCacheTTL is how long parsed settings stay in Redis.
	SettingsCacheTTL time.Duration `env:"CONVERSION_SETTINGS_CACHE_TTL" envDefault:"5m"`

	// Concurrency bounds parallel evaluations within a batch.
	Concurrency int `env:"CONVERSION_CONCURRENCY" envDefault:"8"`

	// BackfillInterval is the backfill runner tick interval.
	BackfillInterval time.Duration `env:"CONVERSION_BACKFILL_INTERVAL" envDefault:"1m"`

	// BackfillBatch is the number of enrollments evaluated per page.
	BackfillBatch int `env:"CONVERSION_BACKFILL_BATCH" envDefault:"500"`

	// BackfillLockTTL bounds how long one instance holds a journey's backfill lock.
	BackfillLockTTL time.Duration `env:"CONVERSION_BACKFILL_LOCK_TTL" envDefault:"10m"`
}

// Sanitize applies guardrails to conversion configuration values.
func (c *ConversionConfig) Sanitize() {
	if c.SettingsPath = strings.TrimSpace(c.SettingsPath); c.SettingsPath == "" {
		c.SettingsPath = "conversionTracking"
	}
	if c.SettingsCacheTTL < 0 {
		c.SettingsCacheTTL = 0
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Concurrency > 64 {
		c.Concurrency = 64
	}
	if c.BackfillInterval < 10*time.Second {
		c.BackfillInterval = 10 * time.Second
	}
	if c.BackfillBatch < 1 {
		c.BackfillBatch = 1
	}
	if c.BackfillBatch > 5000 {
		c.BackfillBatch = 5000
	}
	if c.BackfillLockTTL < time.Minute {
		c.BackfillLockTTL = time.Minute
	}
}
