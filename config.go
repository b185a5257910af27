package velmoadmin

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/velmohq/velmoadmin/backend"
	"github.com/velmohq/velmoadmin/cache"
	"github.com/velmohq/velmoadmin/realtime"
)

// Config contains configuration options for the admin SDK client.
type Config struct {
	// BackendURL is the base URL of the hosted backend project.
	// Required unless Querier and Auth are both provided directly.
	BackendURL string `envconfig:"VELMO_BACKEND_URL"`

	// APIKey is the backend's anon API key.
	APIKey string `envconfig:"VELMO_API_KEY"`

	// StorageBaseURL is the public object storage base. Defaults to
	// BackendURL + "/storage/v1/object/public".
	StorageBaseURL string `envconfig:"VELMO_STORAGE_URL"`

	// SimulationStatePath is where simulation mode persists its flags.
	// Defaults to ".velmo_admin_state.json" in the working directory.
	SimulationStatePath string `envconfig:"VELMO_SIM_STATE_PATH"`

	// ListStaleness is the cache window for paginated lists and most
	// aggregate views. Default: 30 seconds.
	ListStaleness time.Duration `envconfig:"VELMO_LIST_STALENESS"`

	// DailySalesStaleness is the cache window for the slow-moving daily
	// sales aggregate. Default: 5 minutes.
	DailySalesStaleness time.Duration `envconfig:"VELMO_DAILY_SALES_STALENESS"`

	// ActivityStaleness is the cache window for the realtime activity
	// feed, which should refetch rapidly. Default: 10 seconds.
	ActivityStaleness time.Duration `envconfig:"VELMO_ACTIVITY_STALENESS"`

	// SilentShopsStaleness is the cache window for the silent shops
	// view. Default: 60 seconds.
	SilentShopsStaleness time.Duration `envconfig:"VELMO_SILENT_SHOPS_STALENESS"`

	// QueryRetries is how many automatic retries a failed query gets on
	// a retryable error. Mutations are never retried. Default: 2.
	// Set to a negative value to disable retries.
	QueryRetries int `envconfig:"VELMO_QUERY_RETRIES"`

	// LowStockCritical is the quantity at or below which a realtime
	// product update raises a critical stock toast. Default: 3.
	LowStockCritical float64 `envconfig:"VELMO_LOW_STOCK_CRITICAL"`

	// Logger receives query failures and bridge diagnostics.
	// Defaults to a text handler on stderr.
	Logger *slog.Logger `ignored:"true"`

	// CacheStore is the storage backend for cached query results.
	// Default: in-memory store.
	CacheStore cache.Store `ignored:"true"`

	// Querier is the remote data client. Default: a REST client built
	// from BackendURL and APIKey.
	Querier backend.Querier `ignored:"true"`

	// Auth is the identity provider client. Default: a REST auth client
	// built from BackendURL and APIKey.
	Auth backend.AuthClient `ignored:"true"`

	// Realtime is the change-feed transport. Optional; without it the
	// realtime bridge is not started.
	Realtime realtime.Transport `ignored:"true"`

	// SimulationState overrides the file-backed simulation state store.
	SimulationState StateStore `ignored:"true"`
}

// ConfigFromEnv builds a Config from VELMO_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("velmoadmin: failed to read environment: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills in default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.StorageBaseURL == "" && c.BackendURL != "" {
		c.StorageBaseURL = c.BackendURL + "/storage/v1/object/public"
	}
	if c.SimulationStatePath == "" {
		c.SimulationStatePath = ".velmo_admin_state.json"
	}
	if c.ListStaleness <= 0 {
		c.ListStaleness = 30 * time.Second
	}
	if c.DailySalesStaleness <= 0 {
		c.DailySalesStaleness = 5 * time.Minute
	}
	if c.ActivityStaleness <= 0 {
		c.ActivityStaleness = 10 * time.Second
	}
	if c.SilentShopsStaleness <= 0 {
		c.SilentShopsStaleness = 60 * time.Second
	}
	if c.QueryRetries == 0 {
		c.QueryRetries = 2
	}
	if c.QueryRetries < 0 {
		c.QueryRetries = 0
	}
	if c.LowStockCritical <= 0 {
		c.LowStockCritical = 3
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
}
