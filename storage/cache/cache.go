package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/matokeo/core"
)

// Backends
const (
	BackendMemory = "memory"
	BackendDisk   = "disk"
	BackendRedis  = "redis"
)

// keyPrefix versions the cached values. Bump it when their encoding changes.
const keyPrefix = "v1"

// New returns the app cache on top of the store selected by conf.
func New(conf *core.Config) (*core.Cache, error) {
	store, err := NewStore(conf)
	if err != nil {
		return nil, err
	}
	return core.NewCache(store, keyPrefix), nil
}

// NewStore builds the CacheStore selected by conf.Cache.Backend. The redis backend is pinged first.
func NewStore(conf *core.Config) (core.CacheStore, error) {
	switch conf.Cache.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendDisk:
		return NewDiskStore(conf.Cache.Dir)
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Cache.RedisAddr,
			Password: conf.Cache.RedisPassword,
			DB:       conf.Cache.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, errors.Wrap(err, "pinging redis")
		}
		return NewRedisStore(client, conf.AppName), nil
	}
	return nil, errors.Errorf("unknown cache backend %q", conf.Cache.Backend)
}
