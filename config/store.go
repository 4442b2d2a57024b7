package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/deepnoodle-ai/relay/checkpoint"
	relayredis "github.com/deepnoodle-ai/relay/checkpoint/redis"
	"github.com/deepnoodle-ai/relay/checkpoint/sqlite"
	"github.com/redis/go-redis/v9"
)

// Store types.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// OpenedStore is a checkpoint store plus the function that releases it.
type OpenedStore struct {
	checkpoint.Store
	close func() error
}

// Close releases the store's connections.
func (s *OpenedStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Lister returns the store as a checkpoint.Lister, if it supports listing.
func (s *OpenedStore) Lister() (checkpoint.Lister, bool) {
	l, ok := s.Store.(checkpoint.Lister)
	return l, ok
}

// OpenStore opens the configured checkpoint store. Relative paths resolve
// against basePath. An empty type selects the memory store.
func OpenStore(ctx context.Context, cfg Store, basePath string) (*OpenedStore, error) {
	resolve := func(path string) string {
		if path == "" || filepath.IsAbs(path) || basePath == "" {
			return path
		}
		return filepath.Join(basePath, path)
	}
	switch cfg.Type {
	case "", StoreMemory:
		return &OpenedStore{Store: checkpoint.NewMemoryStore()}, nil

	case StoreFile:
		store, err := checkpoint.NewFileStore(resolve(cfg.Path))
		if err != nil {
			return nil, err
		}
		return &OpenedStore{Store: store}, nil

	case StoreSQLite:
		store, err := sqlite.Open(resolve(cfg.Path))
		if err != nil {
			return nil, err
		}
		return &OpenedStore{Store: store, close: store.Close}, nil

	case StoreRedis:
		var ttl time.Duration
		if cfg.TTL != "" {
			d, err := time.ParseDuration(cfg.TTL)
			if err != nil {
				return nil, fmt.Errorf("invalid redis TTL %q: %w", cfg.TTL, err)
			}
			ttl = d
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
		}
		store := relayredis.New(client, relayredis.Options{Prefix: cfg.Prefix, TTL: ttl})
		return &OpenedStore{Store: store, close: client.Close}, nil

	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
