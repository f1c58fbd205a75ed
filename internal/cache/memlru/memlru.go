// Package memlru puts a small in-process LRU in front of another cache
// store, absorbing repeat reads of hot products without a network hop.
package memlru

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/geovine/spectral-cache/internal/cache"
)

type entry struct {
	val     []byte
	expires time.Time
}

type Store struct {
	inner cache.Interface
	lru   *lru.Cache[string, entry]
	now   func() time.Time
}

func New(inner cache.Interface, size int) (*Store, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner, lru: c, now: time.Now}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if e, ok := s.lru.Get(key); ok {
		if e.expires.IsZero() || s.now().Before(e.expires) {
			return e.val, true, nil
		}
		s.lru.Remove(key)
	}
	val, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	// unknown remaining TTL after a miss; keep the local copy briefly
	s.lru.Add(key, entry{val: val, expires: s.now().Add(30 * time.Second)})
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.lru.Add(key, entry{val: val, expires: exp})
	return s.inner.Set(ctx, key, val, ttl)
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		s.lru.Remove(k)
	}
	return s.inner.Del(ctx, keys...)
}

var _ cache.Interface = (*Store)(nil)
