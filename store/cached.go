package store

import (
	"context"
	"errors"
	"time"
)

// Cached layers a fast store in front of an authoritative one. Loads try the
// cache first and back-fill it on a primary hit; writes go through to both.
// The cache is an optimization only: any cache fault degrades silently to
// the primary, and the primary's answer always wins.
type Cached struct {
	primary  Store
	cache    Store
	cacheTTL time.Duration
}

// NewCached creates a read-through store. cacheTTL bounds how long a cache
// entry may outlive its last primary read; zero or negative falls back to
// one minute. The cache entry TTL is deliberately independent from the
// session TTL so a stale cache can never extend a session's life.
func NewCached(primary, cache Store, cacheTTL time.Duration) *Cached {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Cached{
		primary:  primary,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Load implements [Store].
func (c *Cached) Load(ctx context.Context, id string) ([]byte, error) {
	if data, err := c.cache.Load(ctx, id); err == nil {
		return data, nil
	}

	data, err := c.primary.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The record is authoritatively gone; drop any cache leftover.
			_ = c.cache.Delete(ctx, id)
		}
		return nil, err
	}

	_ = c.cache.Save(ctx, id, data, c.cacheTTL)
	return data, nil
}

// Save implements [Store].
func (c *Cached) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if err := c.primary.Save(ctx, id, data, ttl); err != nil {
		return err
	}
	_ = c.cache.Save(ctx, id, data, c.cacheTTL)
	return nil
}

// Create implements [Store]. Collision detection is the primary's call; the
// cache only ever mirrors a confirmed write.
func (c *Cached) Create(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if err := c.primary.Create(ctx, id, data, ttl); err != nil {
		return err
	}
	_ = c.cache.Save(ctx, id, data, c.cacheTTL)
	return nil
}

// Delete implements [Store]. The cache entry is removed even when the
// primary delete fails, so a retry can never resurrect stale data.
func (c *Cached) Delete(ctx context.Context, id string) error {
	err := c.primary.Delete(ctx, id)
	_ = c.cache.Delete(ctx, id)
	return err
}

// Touch implements [Store].
func (c *Cached) Touch(ctx context.Context, id string, ttl time.Duration) error {
	return c.primary.Touch(ctx, id, ttl)
}

// Ping implements [Store]. Availability means primary availability.
func (c *Cached) Ping(ctx context.Context) (time.Duration, error) {
	return c.primary.Ping(ctx)
}
