package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store = %v, want ErrNotFound", err)
	}

	if err := s.Set(ctx, "k", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get = %q, want %q", got, "value")
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted entry Get = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreExpiry(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired entry Get = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreDeletePrefix(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	for _, k := range []string{"shop-detail:s1", "shop-detail:s2", "shop-overview:1:20"} {
		if err := s.Set(ctx, k, []byte("v"), 0); err != nil {
			t.Fatalf("Set(%q) failed: %v", k, err)
		}
	}

	if err := s.DeletePrefix(ctx, "shop-detail"); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}

	for _, k := range []string{"shop-detail:s1", "shop-detail:s2"} {
		if _, err := s.Get(ctx, k); !errors.Is(err, ErrNotFound) {
			t.Errorf("%q survived DeletePrefix", k)
		}
	}
	if _, err := s.Get(ctx, "shop-overview:1:20"); err != nil {
		t.Errorf("unrelated entry was deleted: %v", err)
	}
}

// LIKE metacharacters in a prefix must match literally, not as
// wildcards.
func TestSQLiteStoreDeletePrefixEscapesLike(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "a_b:1", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "axb:1", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := s.DeletePrefix(ctx, "a_b"); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	if _, err := s.Get(ctx, "a_b:1"); !errors.Is(err, ErrNotFound) {
		t.Error("literal-prefix entry survived")
	}
	if _, err := s.Get(ctx, "axb:1"); err != nil {
		t.Error("underscore acted as a wildcard and deleted an unrelated entry")
	}
}
