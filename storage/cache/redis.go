package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/matokeo/core"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

var _ core.CacheStore = (*redisStore)(nil) // interface compliance check

// NewRedisStore stores entries in redis under "<prefix>:<key>". Flush only removes the keys of prefix.
func NewRedisStore(client *redis.Client, prefix string) core.CacheStore {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrCacheMiss
		}
		return nil, errors.Wrap(err, "redis get")
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0 // no expiry
	}
	return errors.Wrap(s.client.Set(ctx, s.key(key), val, ttl).Err(), "redis set")
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, s.key(k))
	}
	return errors.Wrap(s.client.Del(ctx, prefixed...).Err(), "redis del")
}

func (s *redisStore) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.key("*"), 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return errors.Wrap(err, "redis del")
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "redis scan")
	}
	if len(batch) > 0 {
		return errors.Wrap(s.client.Del(ctx, batch...).Err(), "redis del")
	}
	return nil
}
