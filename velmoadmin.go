// Package velmoadmin is the data-access SDK for the Velmo admin
// dashboard. It fronts the hosted backend with a cache-synchronization
// layer: canonical query keys, staleness windows, in-flight
// de-duplication, targeted invalidation, a realtime bridge that keeps
// cached views live, and an admin access guard that fails closed.
package velmoadmin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/velmohq/velmoadmin/backend"
	"github.com/velmohq/velmoadmin/cache"
	"github.com/velmohq/velmoadmin/realtime"
)

// Client is the admin SDK entry point.
type Client struct {
	cfg    Config
	log    *slog.Logger
	store  cache.Store
	q      backend.Querier
	auth   backend.AuthClient
	fetch  *fetcher
	guard  *guard
	toasts *ToastCenter
	hub    *realtime.Hub
	bridge *bridge
	state  StateStore

	// ownsStore is set when the client created the cache store itself
	// and must close it.
	ownsStore bool
}

// New creates an admin client with the given configuration.
// If Querier, Auth or CacheStore are not provided, defaults are used:
// - Querier/Auth: REST clients built from BackendURL and APIKey
// - CacheStore: in-memory store
// The realtime bridge only starts when a Realtime transport is set.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()

	c := &Client{
		cfg:    cfg,
		log:    cfg.Logger,
		toasts: NewToastCenter(),
	}

	// Identity provider (default: REST over BackendURL).
	if cfg.Auth != nil {
		c.auth = cfg.Auth
	} else {
		if cfg.BackendURL == "" {
			return nil, fmt.Errorf("velmoadmin: BackendURL is required when no Auth client is provided")
		}
		c.auth = backend.NewRESTAuth(cfg.BackendURL, cfg.APIKey)
	}

	// Remote data client (default: REST over BackendURL). When both
	// default clients are in play, queries carry the signed-in user's
	// token so row-level security applies.
	if cfg.Querier != nil {
		c.q = cfg.Querier
	} else {
		if cfg.BackendURL == "" {
			return nil, fmt.Errorf("velmoadmin: BackendURL is required when no Querier is provided")
		}
		var tokenSource func() string
		if restAuth, ok := c.auth.(*backend.RESTAuth); ok {
			tokenSource = restAuth.AccessToken
		}
		c.q = backend.NewRESTClient(cfg.BackendURL, cfg.APIKey, tokenSource)
	}

	// Cache store (default: in-memory).
	if cfg.CacheStore != nil {
		c.store = cfg.CacheStore
	} else {
		c.store = cache.NewMemoryStore()
		c.ownsStore = true
	}

	if cfg.SimulationState != nil {
		c.state = cfg.SimulationState
	} else {
		c.state = NewFileState(cfg.SimulationStatePath)
	}

	c.fetch = newFetcher(c.store, c.log, cfg.QueryRetries)
	c.guard = newGuard(c.q, c.auth, c.log)

	if cfg.Realtime != nil {
		c.hub = realtime.NewHub(cfg.Realtime)
		b, err := startBridge(c)
		if err != nil {
			c.hub.Close()
			return nil, err
		}
		c.bridge = b
	}

	return c, nil
}

// Toasts returns the client's notification center.
func (c *Client) Toasts() *ToastCenter {
	return c.toasts
}

// Invalidate discards the cached entry for one query key and supersedes
// any in-flight fetch for it.
func (c *Client) Invalidate(ctx context.Context, key Key) error {
	return c.fetch.invalidate(ctx, key)
}

// InvalidateKind discards every cached entry of a kind, all pages and
// parameter variants included.
func (c *Client) InvalidateKind(ctx context.Context, kind Kind) error {
	return c.fetch.invalidateKind(ctx, kind)
}

// Close releases all resources held by the client.
// Should be called when the application shuts down.
func (c *Client) Close() error {
	var errs []error

	if c.bridge != nil {
		c.bridge.stop()
	}
	if c.hub != nil {
		if err := c.hub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.guard.close()
	c.toasts.close()

	if c.ownsStore {
		if err := c.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("velmoadmin: errors during close: %v", errs)
	}
	return nil
}
