package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// KV is the minimal key-value surface the session cache needs. It is
// satisfied by cache.Client (Redis) in production and by any in-memory
// implementation in tests. A Get miss is reported as (nil, nil).
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionCache stores the resolved role and permission name sets per user.
// It is a derived, disposable accelerator: the relational tables stay the
// single source of truth and every entry can be rebuilt from them at any time.
type SessionCache struct {
	kv  KV
	ttl time.Duration
}

// NewSessionCache creates a session cache over the given key-value store.
// Entries expire after ttl; zero means no expiry.
func NewSessionCache(kv KV, ttl time.Duration) *SessionCache {
	if kv == nil {
		panic("authz: kv store is nil")
	}

	return &SessionCache{kv: kv, ttl: ttl}
}

// Get returns the cached name set for the key. The second return value is
// false when the entry is absent and must be rebuilt from the database.
func (c *SessionCache) Get(ctx context.Context, key Key) ([]string, bool, error) {
	raw, err := c.kv.Get(ctx, key.String())
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session cache %s: %w", key, err)
	}

	if raw == nil {
		return nil, false, nil
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		// Treat a corrupt entry like a miss; it will be rebuilt.
		return nil, false, nil
	}

	return names, true, nil
}

// Set stores the resolved name set for the key.
func (c *SessionCache) Set(ctx context.Context, key Key, names []string) error {
	if names == nil {
		names = []string{}
	}

	raw, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode session cache %s: %w", key, err)
	}

	if err := c.kv.Set(ctx, key.String(), raw, c.ttl); err != nil {
		return fmt.Errorf("failed to write session cache %s: %w", key, err)
	}

	return nil
}

// Invalidate drops both cache entries for the user. Used on logout and when
// a user is deactivated, so the next check rebuilds from the database.
func (c *SessionCache) Invalidate(ctx context.Context, userID uint64) error {
	if err := c.kv.Delete(ctx, PermissionsKey(userID).String()); err != nil {
		return fmt.Errorf("failed to invalidate permission cache: %w", err)
	}

	if err := c.kv.Delete(ctx, RolesKey(userID).String()); err != nil {
		return fmt.Errorf("failed to invalidate role cache: %w", err)
	}

	return nil
}
