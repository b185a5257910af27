package velmoadmin

import (
	"context"
	"fmt"

	"github.com/velmohq/velmoadmin/realtime"
)

// liveChannel is the shared realtime channel the dashboard listens on.
const liveChannel = "dashboard-live-events"

// lowStockPredicate is pushed to the realtime service so only product
// updates that drop below the alert window are delivered at all.
var lowStockPredicate = realtime.Predicate{Column: "quantity", Op: "lt", Value: 5}

// bridge wires the backend change feed into the cache and the
// notification center: each event invalidates the views it staled and,
// where it is worth an operator's attention, raises a toast.
// Invalidation and notification are independent; a failure of one never
// suppresses the other.
type bridge struct {
	c      *Client
	cancel []func() error
}

// startBridge subscribes the four event streams on the shared channel.
// Any partially established subscription is torn down on error.
func startBridge(c *Client) (*bridge, error) {
	b := &bridge{c: c}

	subs := []struct {
		filter  realtime.Filter
		handler func(realtime.Event)
	}{
		{
			filter:  realtime.Filter{Table: "sales", Types: []realtime.EventType{realtime.EventInsert}},
			handler: b.onSale,
		},
		{
			filter: realtime.Filter{
				Table:     "products",
				Types:     []realtime.EventType{realtime.EventUpdate},
				Predicate: &lowStockPredicate,
			},
			handler: b.onStockDrop,
		},
		{
			filter:  realtime.Filter{Table: "users", Types: []realtime.EventType{realtime.EventInsert}},
			handler: b.onNewUser,
		},
		{
			filter:  realtime.Filter{Table: "debts", Types: []realtime.EventType{realtime.EventInsert}},
			handler: b.onDebt,
		},
	}

	for _, sub := range subs {
		unsubscribe, err := c.hub.Subscribe(liveChannel, sub.filter, sub.handler)
		if err != nil {
			b.stop()
			return nil, fmt.Errorf("velmoadmin: failed to start live bridge: %w", err)
		}
		b.cancel = append(b.cancel, unsubscribe)
	}
	return b, nil
}

func (b *bridge) stop() {
	for _, unsubscribe := range b.cancel {
		if err := unsubscribe(); err != nil {
			b.c.log.Warn("live bridge unsubscribe failed", "error", err)
		}
	}
	b.cancel = nil
}

func (b *bridge) invalidate(keys ...Key) {
	ctx := context.Background()
	for _, key := range keys {
		if err := b.c.fetch.invalidate(ctx, key); err != nil {
			b.c.log.Warn("live invalidation failed", "key", key.String(), "error", err)
		}
	}
}

func (b *bridge) invalidateKinds(kinds ...Kind) {
	ctx := context.Background()
	for _, kind := range kinds {
		if err := b.c.fetch.invalidateKind(ctx, kind); err != nil {
			b.c.log.Warn("live invalidation failed", "kind", string(kind), "error", err)
		}
	}
}

// onSale handles a completed sale: the money views are stale and the
// operator gets a success toast with the amount.
func (b *bridge) onSale(ev realtime.Event) {
	b.invalidate(PlatformStatsKey(), RealtimeActivityKey())
	b.invalidateKinds(KindDailySales)

	message := "A sale has been recorded"
	if amount, ok := numField(ev.New, "total_amount"); ok {
		message = fmt.Sprintf("Sale of %.0f recorded", amount)
	}
	b.c.toasts.AddDefault(ToastSuccess, "New sale", message)
}

// onStockDrop handles a product falling into the alert window. Only a
// drop at or below the critical threshold is worth interrupting the
// operator for; the rest just refresh the alert views.
func (b *bridge) onStockDrop(ev realtime.Event) {
	b.invalidateKinds(KindStockAlerts, KindAllProducts)

	quantity, ok := numField(ev.New, "quantity")
	if !ok || quantity > b.c.cfg.LowStockCritical {
		return
	}
	name, _ := ev.New["name"].(string)
	if name == "" {
		name = "A product"
	}
	b.c.toasts.AddDefault(ToastWarning, "Critical stock",
		fmt.Sprintf("%s is down to %.0f units", name, quantity))
}

// onNewUser handles a user registration.
func (b *bridge) onNewUser(ev realtime.Event) {
	b.invalidate(PlatformStatsKey())
	b.invalidateKinds(KindAllUsers)

	name, _ := ev.New["first_name"].(string)
	message := "A new user has registered"
	if name != "" {
		message = fmt.Sprintf("%s has registered", name)
	}
	b.c.toasts.AddDefault(ToastInfo, "New user", message)
}

// onDebt handles a newly recorded debt. The debt views go stale but no
// toast is raised; debts are routine bookkeeping, not operator events.
func (b *bridge) onDebt(realtime.Event) {
	b.invalidate(RealtimeActivityKey())
	b.invalidateKinds(KindAllDebts)
}

func numField(row map[string]any, key string) (float64, bool) {
	raw, ok := row[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
