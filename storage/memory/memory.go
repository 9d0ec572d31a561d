// Package memory is an in-process storage.Storage bounded by an LRU
// (github.com/hashicorp/golang-lru/v2). Expired entries are dropped lazily
// when read.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"github.com/tudescuento/mcp-server-go/storage"
)

type entry struct {
	data    []byte
	expires time.Time // zero: never
}

// Storage implements storage.Storage in memory.
type Storage struct {
	clock clockwork.Clock

	mu     sync.Mutex
	cache  *lru.Cache[string, entry]
	closed bool
}

var _ storage.Storage = (*Storage)(nil)

// Option configures a Storage.
type Option func(*Storage)

// WithClock sets the clock used for expiry. Defaults to the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Storage) { s.clock = c }
}

// New creates a Storage holding at most maxItems entries.
func New(maxItems int, opts ...Option) (*Storage, error) {
	cache, err := lru.New[string, entry](maxItems)
	if err != nil {
		return nil, fmt.Errorf("memory storage: %w", err)
	}
	s := &Storage{clock: clockwork.NewRealClock(), cache: cache}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Storage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	e, ok := s.cache.Get(key)
	if !ok {
		return nil, storage.ErrMiss
	}
	if !e.expires.IsZero() && !s.clock.Now().Before(e.expires) {
		s.cache.Remove(key)
		return nil, storage.ErrMiss
	}
	return e.data, nil
}

func (s *Storage) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	e := entry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		e.expires = s.clock.Now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.cache.Add(key, e)
	return nil
}

func (s *Storage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	for _, k := range keys {
		s.cache.Remove(k)
	}
	return nil
}

// Close drops every entry. Further calls fail with storage.ErrClosed.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.cache.Purge()
	}
	return nil
}

// Len reports the number of entries held, expired or not.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
