package periodlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, 30*time.Second)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	org := uuid.MustParse("8b7f7e4e-9f3f-4c57-a1c8-0f8d6de2b001")
	period := shared.Period("2026-01")

	if _, ok := cache.Get(ctx, org, period); ok {
		t.Fatalf("expected miss on empty cache")
	}

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	cache.Store(ctx, org, period, cachedLock{Found: true, Status: StatusLocked, LockedBy: "u-admin", LockedAt: at})

	state, ok := cache.Get(ctx, org, period)
	if !ok {
		t.Fatalf("expected hit")
	}
	if !state.Found || state.Status != StatusLocked || state.LockedBy != "u-admin" || !state.LockedAt.Equal(at) {
		t.Fatalf("state %+v", state)
	}

	cache.Invalidate(ctx, org, period)
	if _, ok := cache.Get(ctx, org, period); ok {
		t.Fatalf("expected miss after invalidation")
	}
}

func TestCacheNegativeEntry(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	org := uuid.MustParse("8b7f7e4e-9f3f-4c57-a1c8-0f8d6de2b001")

	cache.Store(ctx, org, "2026-03", cachedLock{Found: false})
	state, ok := cache.Get(ctx, org, "2026-03")
	if !ok || state.Found {
		t.Fatalf("negative entry not cached: ok=%v state=%+v", ok, state)
	}
}

func TestCacheNilSafe(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	org := uuid.New()
	cache.Store(ctx, org, "2026-01", cachedLock{Found: true})
	if _, ok := cache.Get(ctx, org, "2026-01"); ok {
		t.Fatalf("nil cache must always miss")
	}
	cache.Invalidate(ctx, org, "2026-01")
}
