// Package storage defines the byte cache the CRM client keeps catalog
// responses in. Backends exist for process memory (LRU) and Redis.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Get when the key is absent or has expired.
	ErrMiss = errors.New("storage: miss")
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("storage: closed")
)

// Storage is a TTL-aware byte cache.
//
// A ttl <= 0 stores the value until it is evicted or deleted. Values handed to
// Set may be reused by the caller after Set returns.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
