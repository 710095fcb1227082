// Package redis provides Redis-backed caches in front of the relational
// store: live session state (read-heavy under polling) and test content.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
)

// LiveStateCache is a write-through cache around a LiveStateStore. Every
// student polls the live state on an interval, so reads vastly outnumber
// the host's writes; the cache keeps those polls off Postgres. Cached
// entries are best-effort: a Redis failure falls back to the inner store.
type LiveStateCache struct {
	client *redis.Client
	inner  app.LiveStateStore
	ttl    time.Duration
}

func NewLiveStateCache(client *redis.Client, inner app.LiveStateStore, ttl time.Duration) *LiveStateCache {
	return &LiveStateCache{client: client, inner: inner, ttl: ttl}
}

func (c *LiveStateCache) GetLiveState(ctx context.Context, testID string) (domain.LiveState, error) {
	raw, err := c.client.Get(ctx, c.key(testID)).Bytes()
	if err == nil {
		var state domain.LiveState
		if err := json.Unmarshal(raw, &state); err == nil {
			return state, nil
		}
	}

	state, err := c.inner.GetLiveState(ctx, testID)
	if err != nil {
		return domain.LiveState{}, err
	}
	c.set(ctx, testID, state)
	return state, nil
}

func (c *LiveStateCache) UpdateLiveState(ctx context.Context, testID string, state domain.LiveState) error {
	if err := c.inner.UpdateLiveState(ctx, testID, state); err != nil {
		return err
	}
	c.set(ctx, testID, state)
	return nil
}

func (c *LiveStateCache) set(ctx context.Context, testID string, state domain.LiveState) {
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(testID), raw, c.ttl).Err()
}

func (c *LiveStateCache) key(testID string) string {
	return "exam:live:" + testID
}
