package velmoadmin

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/velmohq/velmoadmin/cache"
)

// fetcher is the cache-synchronization core. It routes every query
// through cache lookup, per-key in-flight de-duplication, retry, and a
// generation guard so a superseded fetch can never overwrite a fresher
// one (last-initiated-wins).
type fetcher struct {
	store   cache.Store
	log     *slog.Logger
	retries int

	flights singleflight.Group

	mu  sync.Mutex
	gen map[string]uint64
}

func newFetcher(store cache.Store, log *slog.Logger, retries int) *fetcher {
	return &fetcher{
		store:   store,
		log:     log,
		retries: retries,
		gen:     make(map[string]uint64),
	}
}

// do returns the serialized result for key, from cache when a live entry
// exists, otherwise via fn. Concurrent callers for the same key share a
// single remote call. The result is only written back to the cache when
// the flight has not been superseded by an invalidation in the meantime.
func (f *fetcher) do(ctx context.Context, key Key, ttl time.Duration, fn func(ctx context.Context) (any, error)) ([]byte, error) {
	ck := key.String()

	if raw, err := f.store.Get(ctx, ck); err == nil {
		return raw, nil
	}

	v, err, _ := f.flights.Do(ck, func() (any, error) {
		f.mu.Lock()
		// Materialize the entry: the prefix walks in invalidateKind and
		// invalidateAll only bump keys present in the map, and an
		// in-flight key must be visible to them.
		startGen := f.gen[ck]
		f.gen[ck] = startGen
		f.mu.Unlock()

		var raw []byte
		err := withRetry(ctx, f.retries, func() error {
			result, err := fn(ctx)
			if err != nil {
				return err
			}
			encoded, err := json.Marshal(result)
			if err != nil {
				return err
			}
			raw = encoded
			return nil
		})
		if err != nil {
			return nil, err
		}

		f.mu.Lock()
		superseded := f.gen[ck] != startGen
		f.mu.Unlock()
		if !superseded {
			if err := f.store.Set(ctx, ck, raw, ttl); err != nil {
				f.log.Warn("cache write failed", "key", ck, "error", err)
			}
		}
		// A superseded result is still returned to the callers that
		// initiated it; it just never lands in the cache.
		return raw, nil
	})
	if err != nil {
		f.log.Error("query failed", "kind", string(key.Kind), "key", ck, "error", err)
		return nil, err
	}
	return v.([]byte), nil
}

// invalidate discards the entry for key and supersedes any in-flight
// fetch for it: the next do() call starts a fresh remote call instead of
// joining the stale flight.
func (f *fetcher) invalidate(ctx context.Context, key Key) error {
	ck := key.String()

	f.mu.Lock()
	f.gen[ck]++
	f.mu.Unlock()
	f.flights.Forget(ck)

	return f.store.Delete(ctx, ck)
}

// invalidateKind discards every entry of a kind, all pages and parameter
// variants included.
func (f *fetcher) invalidateKind(ctx context.Context, kind Kind) error {
	prefix := string(kind)

	f.mu.Lock()
	for ck := range f.gen {
		if strings.HasPrefix(ck, prefix) {
			f.gen[ck]++
			f.flights.Forget(ck)
		}
	}
	f.mu.Unlock()
	// Keys never fetched through this process still need their stored
	// entries cleared (shared cache backends).
	return f.store.DeletePrefix(ctx, prefix)
}

// invalidateAll discards every cached entry and supersedes every
// in-flight fetch. Used on sign-out so no data leaks across sessions.
func (f *fetcher) invalidateAll(ctx context.Context) error {
	f.mu.Lock()
	for ck := range f.gen {
		f.gen[ck]++
		f.flights.Forget(ck)
	}
	f.mu.Unlock()
	return f.store.DeletePrefix(ctx, "")
}

// fetchAs is the typed read path: cache hit decodes the stored entry,
// miss runs fn through the deduplicated fetch pipeline.
func fetchAs[T any](ctx context.Context, c *Client, key Key, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := c.fetch.do(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		// A corrupt cache entry is unrecoverable by retry; drop it so
		// the next read refetches.
		_ = c.fetch.invalidate(ctx, key)
		return zero, err
	}
	return out, nil
}
