// Package redis provides a checkpoint.Store backed by Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/relay/checkpoint"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces checkpoint keys.
const DefaultPrefix = "relay:checkpoint:"

// Options configures a Store.
type Options struct {
	// Prefix is prepended to every key. Defaults to DefaultPrefix.
	Prefix string

	// TTL expires checkpoints that are never resumed. Zero keeps them until
	// consumed.
	TTL time.Duration
}

// Store persists checkpoints as JSON strings. A sorted set indexes pending
// checkpoints by creation time.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ checkpoint.Store = (*Store)(nil)
var _ checkpoint.Lister = (*Store)(nil)

// New returns a Store using client.
func New(client *redis.Client, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(cp.CorrelationID), data, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  float64(cp.CreatedAt.UnixMilli()),
			Member: cp.CorrelationID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*checkpoint.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var cp checkpoint.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s: %w", id, err)
	}
	return &cp, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	// DEL is atomic; only one caller observes a count of one.
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	if n == 0 {
		return checkpoint.ErrNotFound
	}
	if err := s.client.ZRem(ctx, s.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to update checkpoint index: %w", err)
	}
	return nil
}

// List returns pending checkpoints, oldest first. Index entries whose
// checkpoint has expired are pruned.
func (s *Store) List(ctx context.Context) ([]*checkpoint.Checkpoint, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	out := make([]*checkpoint.Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp, err := s.Load(ctx, id)
		if errors.Is(err, checkpoint.ErrNotFound) {
			s.client.ZRem(ctx, s.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}
