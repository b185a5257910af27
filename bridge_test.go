package velmoadmin

import (
	"context"
	"strings"
	"testing"

	"github.com/velmohq/velmoadmin/realtime"
)

func TestBridgeSharesOneChannel(t *testing.T) {
	env := newTestEnv(t)

	// Four event streams, one underlying transport channel.
	if got := env.transport.OpenCount(); got != 1 {
		t.Errorf("bridge opened %d channels, want 1", got)
	}
	if got := env.client.hub.SubscriberCount(liveChannel); got != 4 {
		t.Errorf("bridge holds %d subscriptions, want 4", got)
	}

	env.client.Close()
	if got := env.transport.CloseCount(); got != 1 {
		t.Errorf("close tore down %d channels, want 1", got)
	}
}

func TestBridgeSaleEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.querier.Seed("v_admin_platform_stats", []map[string]any{{"total_sales": 10}})
	if _, err := env.client.PlatformStats(ctx); err != nil {
		t.Fatalf("warm PlatformStats: %v", err)
	}
	before := env.querier.QueryCalls("v_admin_platform_stats")

	env.transport.Emit(liveChannel, realtime.Event{
		Table: "sales",
		Type:  realtime.EventInsert,
		New:   map[string]any{"id": "sa1", "total_amount": 15000.0},
	})

	toasts := env.client.Toasts().Active()
	if len(toasts) != 1 {
		t.Fatalf("got %d toasts, want 1", len(toasts))
	}
	if toasts[0].Level != ToastSuccess {
		t.Errorf("toast level = %s, want success", toasts[0].Level)
	}
	if !strings.Contains(toasts[0].Message, "15000") {
		t.Errorf("toast message %q should carry the amount", toasts[0].Message)
	}

	// The money views went stale.
	if _, err := env.client.PlatformStats(ctx); err != nil {
		t.Fatalf("re-read PlatformStats: %v", err)
	}
	if got := env.querier.QueryCalls("v_admin_platform_stats"); got != before+1 {
		t.Errorf("platform stats queries = %d, want %d", got, before+1)
	}
}

func TestBridgeLowStockEvent(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		quantity  float64
		wantToast bool
	}{
		{"at critical threshold", 3, true},
		{"below threshold", 1, true},
		{"inside alert window but not critical", 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.client.Toasts().Reset()

			env.transport.Emit(liveChannel, realtime.Event{
				Table: "products",
				Type:  realtime.EventUpdate,
				New:   map[string]any{"id": "p1", "name": "Rice 5kg", "quantity": tt.quantity},
			})

			toasts := env.client.Toasts().Active()
			if tt.wantToast {
				if len(toasts) != 1 || toasts[0].Level != ToastWarning {
					t.Fatalf("toasts = %+v, want one warning", toasts)
				}
				if !strings.Contains(toasts[0].Message, "Rice 5kg") {
					t.Errorf("toast message %q should name the product", toasts[0].Message)
				}
			} else if len(toasts) != 0 {
				t.Errorf("quantity %.0f raised %d toasts, want none", tt.quantity, len(toasts))
			}
		})
	}
}

func TestBridgeLowStockPredicateFiltersHealthyUpdates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.querier.Seed("v_admin_stock_alerts", []map[string]any{})
	if _, err := env.client.StockAlerts(ctx, 1, 20); err != nil {
		t.Fatalf("warm StockAlerts: %v", err)
	}
	before := env.querier.QueryCalls("v_admin_stock_alerts")

	// A restock far above the alert window never reaches the handler.
	env.transport.Emit(liveChannel, realtime.Event{
		Table: "products",
		Type:  realtime.EventUpdate,
		New:   map[string]any{"id": "p1", "name": "Rice 5kg", "quantity": 80.0},
	})

	if _, err := env.client.StockAlerts(ctx, 1, 20); err != nil {
		t.Fatalf("re-read StockAlerts: %v", err)
	}
	if got := env.querier.QueryCalls("v_admin_stock_alerts"); got != before {
		t.Errorf("healthy update invalidated the stock alert cache (%d queries, want %d)", got, before)
	}
}

func TestBridgeNewUserEvent(t *testing.T) {
	env := newTestEnv(t)

	env.transport.Emit(liveChannel, realtime.Event{
		Table: "users",
		Type:  realtime.EventInsert,
		New:   map[string]any{"id": "u9", "first_name": "Awa"},
	})

	toasts := env.client.Toasts().Active()
	if len(toasts) != 1 || toasts[0].Level != ToastInfo {
		t.Fatalf("toasts = %+v, want one info", toasts)
	}
	if !strings.Contains(toasts[0].Message, "Awa") {
		t.Errorf("toast message %q should name the user", toasts[0].Message)
	}
}

func TestBridgeDebtEventIsSilent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.querier.Seed("debts", []map[string]any{})
	if _, err := env.client.AllDebts(ctx, 1, 20); err != nil {
		t.Fatalf("warm AllDebts: %v", err)
	}
	before := env.querier.QueryCalls("debts")

	env.transport.Emit(liveChannel, realtime.Event{
		Table: "debts",
		Type:  realtime.EventInsert,
		New:   map[string]any{"id": "d9", "customer_name": "C9"},
	})

	if got := env.client.Toasts().Active(); len(got) != 0 {
		t.Errorf("debt event raised %d toasts, want none", len(got))
	}

	// But the debt views still went stale.
	if _, err := env.client.AllDebts(ctx, 1, 20); err != nil {
		t.Fatalf("re-read AllDebts: %v", err)
	}
	if got := env.querier.QueryCalls("debts"); got != before+1 {
		t.Errorf("debts queries = %d, want %d", got, before+1)
	}
}

// Events on tables the bridge does not watch, or of unwatched types, are
// dropped by the hub filters.
func TestBridgeIgnoresUnwatchedEvents(t *testing.T) {
	env := newTestEnv(t)

	env.transport.Emit(liveChannel, realtime.Event{
		Table: "sales",
		Type:  realtime.EventDelete,
		Old:   map[string]any{"id": "sa1"},
	})
	env.transport.Emit(liveChannel, realtime.Event{
		Table: "shop_members",
		Type:  realtime.EventInsert,
		New:   map[string]any{"id": "m1"},
	})

	if got := env.client.Toasts().Active(); len(got) != 0 {
		t.Errorf("unwatched events raised %d toasts", len(got))
	}
}
