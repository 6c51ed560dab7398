package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process cache backed by go-cache.
type Memory struct {
	cache *gocache.Cache
}

// NewMemory creates a memory cache. Expired entries are swept every
// defaultTTL, or every minute if defaultTTL is not positive.
func NewMemory(defaultTTL time.Duration) *Memory {
	cleanup := defaultTTL
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Memory{cache: gocache.New(defaultTTL, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return v.([]byte), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.cache.Set(key, value, ttl)
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.cache.ItemCount()
}

func (m *Memory) Close() error {
	m.cache.Flush()
	return nil
}
