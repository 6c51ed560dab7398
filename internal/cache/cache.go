// Package cache stores generated answers so repeated questions skip the
// remote model.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte-value store with per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend   string // "memory", "redis" or "none"
	RedisAddr string
	RedisDB   int
	Password  string
	Prefix    string
	TTL       time.Duration
}

// New builds the backend named by cfg.Backend. An empty backend means memory.
// "none" returns a nil Cache and nil error.
func New(cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.TTL), nil
	case "redis":
		r, err := NewRedis(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
