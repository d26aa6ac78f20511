package periodlock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// Cache is a short-lived Redis read cache in front of Check. Postgres remains
// authoritative: every lock transition deletes the key, and a miss always
// falls through to the repository. A nil *Cache disables caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds the Check read cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{client: client, ttl: ttl}
}

type cachedLock struct {
	Found    bool      `json:"found"`
	Status   Status    `json:"status,omitempty"`
	LockedBy string    `json:"locked_by,omitempty"`
	LockedAt time.Time `json:"locked_at,omitempty"`
}

func cacheKey(org uuid.UUID, period shared.Period) string {
	return fmt.Sprintf("periodlock:%s:%s", org, period)
}

// Get returns the cached state, reporting ok=false on miss or any Redis error.
func (c *Cache) Get(ctx context.Context, org uuid.UUID, period shared.Period) (cachedLock, bool) {
	if c == nil || c.client == nil {
		return cachedLock{}, false
	}
	raw, err := c.client.Get(ctx, cacheKey(org, period)).Bytes()
	if err != nil {
		return cachedLock{}, false
	}
	var state cachedLock
	if err := json.Unmarshal(raw, &state); err != nil {
		return cachedLock{}, false
	}
	return state, true
}

// Store caches the state observed by a repository read.
func (c *Cache) Store(ctx context.Context, org uuid.UUID, period shared.Period, state cachedLock) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKey(org, period), raw, c.ttl)
}

// Invalidate drops the key after a transition.
func (c *Cache) Invalidate(ctx context.Context, org uuid.UUID, period shared.Period) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, cacheKey(org, period))
}
