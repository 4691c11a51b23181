// Package cache provides the key-value store used to remember which
// reminders were already sent.
package cache

import (
	"context"
	"time"
)

// Cache is a string key-value store with per-entry expiry
type Cache interface {
	// Get returns the value and true when key is present and not expired
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key for at least ttl
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
