// Package cache holds the JSON key/value cache used in front of slow lookups.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// GetJSON decodes the value at key into dst. A miss returns false and no error.
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
