package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"github.com/redis/go-redis/v9"
)

const availableKey = "stalls:available"

// StallCache is a cache-aside layer over the availability listing, the one
// read-heavy query on the ledger. Every ledger mutation invalidates it; a
// stale entry can only last until the next write or the TTL.
type StallCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewStallCache(rdb redis.Cmdable, ttl time.Duration) *StallCache {
	return &StallCache{rdb: rdb, ttl: ttl}
}

// GetAvailable returns the cached availability listing and whether it was
// present.
func (c *StallCache) GetAvailable(ctx context.Context) ([]domain.Stall, bool, error) {
	raw, err := c.rdb.Get(ctx, availableKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var stalls []domain.Stall
	if err := json.Unmarshal(raw, &stalls); err != nil {
		return nil, false, fmt.Errorf("cache decode: %w", err)
	}
	return stalls, true, nil
}

func (c *StallCache) SetAvailable(ctx context.Context, stalls []domain.Stall) error {
	raw, err := json.Marshal(stalls)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, availableKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *StallCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, availableKey).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
