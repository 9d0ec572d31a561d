package memory

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tudescuento/mcp-server-go/storage"
	"github.com/tudescuento/mcp-server-go/storage/storagetest"
)

func mustStorage(t *testing.T, size int, opts ...Option) *Storage {
	t.Helper()
	s, err := New(size, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryStorage(t *testing.T) {
	storagetest.RunStorageTests(t, func(t *testing.T) (storage.Storage, func(time.Duration)) {
		clock := clockwork.NewFakeClock()
		return mustStorage(t, 100, WithClock(clock)), clock.Advance
	})
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatalf("expected error for zero size")
	}
}

func TestLRUEviction(t *testing.T) {
	s := mustStorage(t, 2)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if want, got := 2, s.Len(); want != got {
		t.Fatalf("size: want %d got %d", want, got)
	}
	if _, err := s.Get(ctx, "a"); err == nil {
		t.Fatalf("expected least recently used key to be evicted")
	}
}

func TestSetCopiesData(t *testing.T) {
	s := mustStorage(t, 10)
	ctx := context.Background()

	buf := []byte("original")
	if err := s.Set(ctx, "k", buf, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	copy(buf, "mutated!")

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if want := "original"; want != string(got) {
		t.Fatalf("data: want %s got %s", want, got)
	}
}
