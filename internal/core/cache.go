// Package core defines the ports between services and storage, and the
// settings cache built on them.
package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/target/engage-api/internal/domain/conversion"
)

// CacheRepository defines the interface for caching operations.
// The core defines it and the data layer provides the Redis implementation.
type CacheRepository interface {
	// Set stores a value with the given TTL. A TTL of 0 never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns nil when the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// SetIfNotExists atomically sets a key only if it is absent.
	// Used for distributed locks.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// DeleteIfValue deletes the key only while it still holds value.
	DeleteIfValue(ctx context.Context, key string, value []byte) (bool, error)

	Health(ctx context.Context) error
}

// Tracking is a journey's conversion settings together with the workspace
// its events live in.
type Tracking struct {
	WorkspaceID string
	Settings    conversion.Settings
}

type trackingEntry struct {
	WorkspaceID string          `json:"workspace_id"`
	Settings    json.RawMessage `json:"settings"`
}

// SettingsCache caches parsed conversion settings per journey.
type SettingsCache struct {
	cache CacheRepository
	key   func(journeyID string) string
	ttl   time.Duration
}

// SettingsCacheOptions bundles dependencies for NewSettingsCache.
type SettingsCacheOptions struct {
	Cache CacheRepository
	// Key maps a journey id to its cache key.
	Key func(journeyID string) string
	TTL time.Duration
}

// NewSettingsCache creates a SettingsCache. A nil Cache or a non-positive
// TTL yields a cache that always misses.
func NewSettingsCache(opts SettingsCacheOptions) *SettingsCache {
	key := opts.Key
	if key == nil {
		key = func(journeyID string) string { return "conversion:settings:" + journeyID }
	}
	return &SettingsCache{cache: opts.Cache, key: key, ttl: opts.TTL}
}

func (c *SettingsCache) enabled() bool {
	return c != nil && c.cache != nil && c.ttl > 0
}

// Get returns the cached tracking and whether it was present.
func (c *SettingsCache) Get(ctx context.Context, journeyID string) (Tracking, bool, error) {
	if !c.enabled() {
		return Tracking{}, false, nil
	}

	raw, err := c.cache.Get(ctx, c.key(journeyID))
	if err != nil || len(raw) == 0 {
		return Tracking{}, false, err
	}

	// unreadable entries are misses so they get rewritten
	var entry trackingEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.WorkspaceID == "" {
		return Tracking{}, false, nil
	}
	s, err := conversion.ParseSettings(entry.Settings)
	if err != nil {
		return Tracking{}, false, nil
	}
	return Tracking{WorkspaceID: entry.WorkspaceID, Settings: s}, true, nil
}

// Put stores tracking for journeyID.
func (c *SettingsCache) Put(ctx context.Context, journeyID string, t Tracking) error {
	if !c.enabled() {
		return nil
	}
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(trackingEntry{WorkspaceID: t.WorkspaceID, Settings: settings})
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, c.key(journeyID), raw, c.ttl)
}

// Invalidate drops the cached settings for journeyID.
func (c *SettingsCache) Invalidate(ctx context.Context, journeyID string) error {
	if !c.enabled() {
		return nil
	}
	_, err := c.cache.Delete(ctx, c.key(journeyID))
	return err
}
