package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/comigor/travelbot/internal/cache"
	"github.com/comigor/travelbot/internal/logger"
)

// cachedStore serves ActiveSafetyAlerts from a cache. Cache failures are
// logged and fall through to the underlying store.
type cachedStore struct {
	Store
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger
}

// WithAlertCache wraps s so safety alert lookups are cached for ttl.
func WithAlertCache(s Store, c cache.Cache, ttl time.Duration) Store {
	if c == nil {
		return s
	}
	return &cachedStore{Store: s, cache: c, ttl: ttl, now: time.Now, log: logger.Component("store_cache")}
}

func alertKey(destination string, asOf time.Time) string {
	return fmt.Sprintf("travelbot:alerts:%s:%s", DestinationKey(destination), asOf.Format(DateLayout))
}

func (c *cachedStore) ActiveSafetyAlerts(ctx context.Context, destination string, asOf time.Time) ([]SafetyAlert, error) {
	key := alertKey(destination, asOf)

	var cached []SafetyAlert
	hit, err := c.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		c.log.Warn("alert cache read failed", "key", key, "error", err)
	} else if hit {
		return cached, nil
	}

	alerts, err := c.Store.ActiveSafetyAlerts(ctx, destination, asOf)
	if err != nil {
		return nil, err
	}
	if err := c.cache.SetJSON(ctx, key, nonNil(alerts), c.ttl); err != nil {
		c.log.Warn("alert cache write failed", "key", key, "error", err)
	}
	return alerts, nil
}

func (c *cachedStore) CreateSafetyAlert(ctx context.Context, a *SafetyAlert) (int64, error) {
	id, err := c.Store.CreateSafetyAlert(ctx, a)
	if err != nil {
		return 0, err
	}
	key := alertKey(a.Destination, c.now())
	if err := c.cache.Del(ctx, key); err != nil {
		c.log.Warn("alert cache invalidation failed", "key", key, "error", err)
	}
	return id, nil
}
