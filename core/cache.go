package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// ErrCacheMiss is returned by CacheStore.Get for unknown or expired keys.
var ErrCacheMiss = errors.New("cache: key not found")

// CacheStore is a pluggable key -> (value, expiry) backing store.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores val under key. A ttl <= 0 means the entry never expires.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Flush removes every entry of the store.
	Flush(ctx context.Context) error
}

// Cache namespaces keys and (de)serializes values as JSON on top of a CacheStore.
type Cache struct {
	store  CacheStore
	prefix string
}

func NewCache(store CacheStore, prefix string) *Cache {
	return &Cache{store: store, prefix: prefix}
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Get decodes the cached value of key into dst. It returns ErrCacheMiss when absent.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) error {
	data, err := c.store.Get(ctx, c.key(key))
	if err != nil {
		return err
	}
	if err = json.Unmarshal(data, dst); err != nil {
		return errors.Wrap(err, "decoding cached value")
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "encoding value to cache")
	}
	return c.store.Set(ctx, c.key(key), data, ttl)
}

func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, c.key(k))
	}
	return c.store.Delete(ctx, prefixed...)
}

// Clear drops every entry of the underlying store, whatever its prefix.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Flush(ctx)
}

// Remember loads key into dst, or calls fetch, caches its result for ttl and decodes it into dst.
// Cache failures never fail the call: they only cost a fetch.
func (c *Cache) Remember(ctx context.Context, key string, ttl time.Duration, dst interface{}, fetch func() (interface{}, error)) error {
	if err := c.Get(ctx, key, dst); err == nil {
		return nil
	}

	val, err := fetch()
	if err != nil {
		return err
	}
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, "encoding fetched value")
	}
	_ = c.store.Set(ctx, c.key(key), data, ttl)
	return errors.Wrap(json.Unmarshal(data, dst), "decoding fetched value")
}
