package velmoadmin

import (
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/velmohq/velmoadmin/backend"
	"github.com/velmohq/velmoadmin/realtime"
)

// testEnv bundles the fakes a client under test is wired to.
type testEnv struct {
	client    *Client
	querier   *backend.Memory
	auth      *backend.MemoryAuth
	transport *realtime.MemoryTransport
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	querier := backend.NewMemory()
	auth := backend.NewMemoryAuth()
	transport := realtime.NewMemoryTransport()

	client, err := New(Config{
		StorageBaseURL:  "https://cdn.velmo.test",
		Querier:         querier,
		Auth:            auth,
		Realtime:        transport,
		SimulationState: NewMemoryState(),
		QueryRetries:    -1, // fail fast in tests
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return &testEnv{
		client:    client,
		querier:   querier,
		auth:      auth,
		transport: transport,
	}
}

// seedUsers seeds n users named user-1..user-n, newest last.
func (e *testEnv) seedUsers(n int) {
	rows := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, map[string]any{
			"id":         strconv.Itoa(i),
			"velmo_id":   "U" + strconv.Itoa(i),
			"first_name": "User",
			"last_name":  strconv.Itoa(i),
			"role":       "owner",
			"status":     "active",
			"is_active":  true,
			"created_at": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		})
	}
	e.querier.Seed("users", rows)
}

func TestNewRequiresBackendOrClients(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() with no backend URL and no clients should fail")
	}
}
