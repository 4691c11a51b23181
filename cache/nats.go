package cache

import (
	"context"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/vrooli/jobs/errors"
)

// NATS is a Cache backed by a JetStream key-value bucket.
// Expiry is the bucket's max age: every entry lives for the bucket TTL, which
// must be at least the TTL callers ask for.
type NATS struct {
	kv  jetstream.KeyValue
	ttl time.Duration
}

// NewNATS creates or updates bucket with the given TTL and returns a cache over it
func NewNATS(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (*NATS, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "sent schedule reminders",
		TTL:         ttl,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "creating KV bucket %s", bucket)
	}
	return &NATS{kv: kv, ttl: ttl}, nil
}

// Get reads key from the bucket
func (n *NATS) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := n.kv.Get(ctx, KVKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "get %s", key)
	}
	return string(entry.Value()), true, nil
}

// Set writes key. A ttl longer than the bucket's is refused rather than silently shortened.
func (n *NATS) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if n.ttl > 0 && ttl > n.ttl {
		return errors.NewUnsupportedError("ttl %s exceeds bucket ttl %s", ttl, n.ttl)
	}
	if _, err := n.kv.Put(ctx, KVKey(key), []byte(value)); err != nil {
		return errors.Wrapf(err, "put %s", key)
	}
	return nil
}

// KVKey maps a cache key onto the characters JetStream allows in keys.
// ':' becomes '.', so "schedule-reminder:s1:1700000000000:u1" is stored as
// "schedule-reminder.s1.1700000000000.u1"; any other disallowed rune becomes '_'.
func KVKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ':':
			return '.'
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '/' || r == '=' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
