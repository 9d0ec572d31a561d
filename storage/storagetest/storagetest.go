// Package storagetest holds a conformance suite shared by storage backends.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tudescuento/mcp-server-go/storage"
)

// Factory builds a fresh, empty backend for one subtest along with a function
// that moves the backend's notion of time forward.
type Factory func(t *testing.T) (s storage.Storage, advance func(time.Duration))

// RunStorageTests exercises the behaviour every backend must share.
func RunStorageTests(t *testing.T, newStorage Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		s, _ := newStorage(t)
		if err := s.Set(ctx, "/categories", []byte(`[{"id":1}]`), 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := s.Get(ctx, "/categories")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if want := `[{"id":1}]`; want != string(got) {
			t.Fatalf("Get: want %s got %s", want, got)
		}
	})

	t.Run("Miss", func(t *testing.T) {
		s, _ := newStorage(t)
		if _, err := s.Get(ctx, "missing"); !errors.Is(err, storage.ErrMiss) {
			t.Fatalf("want ErrMiss, got %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		s, _ := newStorage(t)
		_ = s.Set(ctx, "k", []byte("a"), 0)
		_ = s.Set(ctx, "k", []byte("b"), 0)
		got, err := s.Get(ctx, "k")
		if err != nil || string(got) != "b" {
			t.Fatalf("want b, got %q (%v)", got, err)
		}
	})

	t.Run("TTL", func(t *testing.T) {
		s, advance := newStorage(t)
		if err := s.Set(ctx, "short", []byte("x"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if _, err := s.Get(ctx, "short"); err != nil {
			t.Fatalf("Get before expiry: %v", err)
		}
		advance(2 * time.Minute)
		if _, err := s.Get(ctx, "short"); !errors.Is(err, storage.ErrMiss) {
			t.Fatalf("want ErrMiss after expiry, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s, _ := newStorage(t)
		for _, k := range []string{"a", "b", "c"} {
			if err := s.Set(ctx, k, []byte(k), 0); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}
		if err := s.Delete(ctx, "a", "b", "never-set"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		for _, k := range []string{"a", "b"} {
			if _, err := s.Get(ctx, k); !errors.Is(err, storage.ErrMiss) {
				t.Fatalf("key %s: want ErrMiss, got %v", k, err)
			}
		}
		if _, err := s.Get(ctx, "c"); err != nil {
			t.Fatalf("key c should survive: %v", err)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		s, _ := newStorage(t)
		if err := s.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if _, err := s.Get(ctx, "k"); !errors.Is(err, storage.ErrClosed) {
			t.Fatalf("want ErrClosed, got %v", err)
		}
	})
}
