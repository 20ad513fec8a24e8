package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by a shared Redis instance. Expiry is
// enforced server-side; connection faults surface as ErrUnavailable so
// callers degrade to the authoritative store instead of failing.
type RedisStore struct {
	client *redis.Client

	hits    atomic.Uint64
	misses  atomic.Uint64
	sets    atomic.Uint64
	deletes atomic.Uint64
}

// NewRedis creates a Redis-backed store. The connection is verified lazily;
// an unreachable server degrades every call to ErrUnavailable.
func NewRedis(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		}),
	}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return ErrUnavailable
	}
	return nil
}

// Get retrieves a value by key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.misses.Add(1)
			return nil, ErrMiss
		}
		return nil, ErrUnavailable
	}
	s.hits.Add(1)
	return val, nil
}

// Set stores a value with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return ErrUnavailable
	}
	s.sets.Add(1)
	return nil
}

// Delete removes the given keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return ErrUnavailable
	}
	s.deletes.Add(uint64(len(keys)))
	return nil
}

// DeleteByPrefix removes every key starting with prefix using SCAN so the
// server is never blocked by a KEYS call.
func (s *RedisStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.Delete(ctx, batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return ErrUnavailable
	}
	if len(batch) > 0 {
		return s.Delete(ctx, batch...)
	}
	return nil
}

// Increment atomically increments the windowed counter under key. INCR and
// EXPIRE NX run in one transaction, so concurrent creators of a fresh
// window cannot reset the counter past the intended limit.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, ErrUnavailable
	}
	return incr.Val(), nil
}

// ExpireAt reports the expiry time of key derived from its remaining TTL.
func (s *RedisStore) ExpireAt(ctx context.Context, key string) (time.Time, bool, error) {
	d, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return time.Time{}, false, ErrUnavailable
	}
	if d <= 0 {
		// -2: key absent, -1: no expiry
		return time.Time{}, false, nil
	}
	return time.Now().Add(d), true, nil
}

// Stats returns client-side operation counters. Item count comes from DBSIZE
// and is approximate under concurrent writers.
func (s *RedisStore) Stats() Stats {
	var items int64
	if n, err := s.client.DBSize(context.Background()).Result(); err == nil {
		items = n
	}
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Sets:    s.sets.Load(),
		Deletes: s.deletes.Load(),
		Items:   items,
	}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() {
	_ = s.client.Close()
}
