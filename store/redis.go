package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a go-redis backed [Store]. Expiry rides on native key TTLs, so
// expired records vanish without any scanning on our side.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed store. prefix namespaces every session key
// as "<prefix>:<id>".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
	}
}

func (r *Redis) key(id string) string {
	return r.prefix + ":" + id
}

// Load implements [Store].
//
//	Performance: 1 Redis GET.
func (r *Redis) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// Save implements [Store].
//
//	Performance: 1 Redis SET (with PX when ttl > 0).
func (r *Redis) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Create implements [Store] via SET NX, which is atomic per key.
func (r *Redis) Create(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	set, err := r.client.SetNX(ctx, r.key(id), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !set {
		return ErrAlreadyExists
	}
	return nil
}

// Delete implements [Store].
func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Touch implements [Store]. ttl == 0 removes the expiry (PERSIST).
func (r *Redis) Touch(ctx context.Context, id string, ttl time.Duration) error {
	key := r.key(id)

	if ttl <= 0 {
		ok, err := r.client.Persist(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		// PERSIST reports false both for missing keys and keys that already
		// have no TTL; distinguish with an existence probe.
		if !ok {
			exists, err := r.client.Exists(ctx, key).Result()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			if exists == 0 {
				return ErrNotFound
			}
		}
		return nil
	}

	ok, err := r.client.PExpire(ctx, key, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Ping implements [Store].
func (r *Redis) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
