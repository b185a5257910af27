package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
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
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired entry Get = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreNoExpiry(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := s.Get(ctx, "k"); err != nil {
		t.Errorf("ttl<=0 entry expired: %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted entry Get = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestMemoryStoreDeletePrefix(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	entries := map[string]string{
		"all-users:1:20:": "a",
		"all-users:2:20:": "b",
		"all-products:1:20:": "c",
	}
	for k, v := range entries {
		if err := s.Set(ctx, k, []byte(v), 0); err != nil {
			t.Fatalf("Set(%q) failed: %v", k, err)
		}
	}

	if err := s.DeletePrefix(ctx, "all-users"); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}

	if _, err := s.Get(ctx, "all-users:1:20:"); !errors.Is(err, ErrNotFound) {
		t.Error("prefixed entry survived DeletePrefix")
	}
	if _, err := s.Get(ctx, "all-users:2:20:"); !errors.Is(err, ErrNotFound) {
		t.Error("prefixed entry survived DeletePrefix")
	}
	if _, err := s.Get(ctx, "all-products:1:20:"); err != nil {
		t.Errorf("unrelated entry was deleted: %v", err)
	}
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("old"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("new"), time.Minute); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("Get = %q, want %q (overwrite must replace value and ttl)", got, "new")
	}
}
