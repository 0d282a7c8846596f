package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/matokeo/core"
)

const diskFileExt = ".cache.json"

// diskEnvelope is the content of one cache file.
type diskEnvelope struct {
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"` // zero: never
	Value     []byte    `json:"value"`
}

// diskStore keeps one JSON file per key under dir. Files are named after the sha256 of their key.
type diskStore struct {
	dir string
	now func() time.Time
}

var _ core.CacheStore = (*diskStore)(nil) // interface compliance check

func NewDiskStore(dir string) (core.CacheStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating cache dir")
	}
	return &diskStore{dir: dir, now: time.Now}, nil
}

func (s *diskStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+diskFileExt)
}

func (s *diskStore) Get(_ context.Context, key string) ([]byte, error) {
	fp := s.path(key)
	data, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrCacheMiss
		}
		return nil, errors.Wrap(err, "reading cache file")
	}

	var env diskEnvelope
	if err = json.Unmarshal(data, &env); err != nil || env.Key != key {
		_ = os.Remove(fp) // corrupted
		return nil, core.ErrCacheMiss
	}
	if !env.ExpiresAt.IsZero() && !s.now().Before(env.ExpiresAt) {
		_ = os.Remove(fp)
		return nil, core.ErrCacheMiss
	}
	return env.Value, nil
}

// Set writes to a temp file then renames it, so readers never see a partial entry.
func (s *diskStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	env := diskEnvelope{Key: key, Value: val}
	if ttl > 0 {
		env.ExpiresAt = s.now().Add(ttl).UTC()
	}
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "encoding cache entry")
	}

	tmp, err := os.CreateTemp(s.dir, "tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "writing cache file")
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "closing cache file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), s.path(key)), "renaming cache file")
}

func (s *diskStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		if err := os.Remove(s.path(k)); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "removing cache file")
		}
	}
	return nil
}

func (s *diskStore) Flush(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.Wrap(err, "listing cache dir")
	}
	for _, e := range entries {
		if e.IsDir() || !(strings.HasSuffix(e.Name(), diskFileExt) || strings.HasPrefix(e.Name(), "tmp-")) {
			continue
		}
		if err = os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "removing cache file")
		}
	}
	return nil
}
