// Package redis is a storage.Storage backed by Redis. Values are stored as
// plain strings under a key prefix and expire through native Redis TTLs, so
// several server processes can share one catalog cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tudescuento/mcp-server-go/storage"
)

// DefaultKeyPrefix is used when Config.KeyPrefix is empty.
const DefaultKeyPrefix = "tudescuento:crm:"

// Config configures a Storage.
type Config struct {
	Client    *redis.Client
	KeyPrefix string
}

// Storage implements storage.Storage on a Redis client it owns.
type Storage struct {
	client *redis.Client
	prefix string
}

var _ storage.Storage = (*Storage)(nil)

// New wraps an existing client.
func New(config Config) (*Storage, error) {
	if config.Client == nil {
		return nil, errors.New("redis storage: client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	return &Storage{client: config.Client, prefix: config.KeyPrefix}, nil
}

// Dial connects to addr, verifies the connection with PING and returns a
// Storage owning the client.
func Dial(ctx context.Context, addr, keyPrefix string) (*Storage, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis storage: ping %s: %w", addr, err)
	}
	return New(Config{Client: client, KeyPrefix: keyPrefix})
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, storage.ErrMiss
	case errors.Is(err, redis.ErrClosed):
		return nil, storage.ErrClosed
	case err != nil:
		return nil, fmt.Errorf("redis storage: get %s: %w", key, err)
	}
	return b, nil
}

func (s *Storage) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return storage.ErrClosed
		}
		return fmt.Errorf("redis storage: set %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return storage.ErrClosed
		}
		return fmt.Errorf("redis storage: delete: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
