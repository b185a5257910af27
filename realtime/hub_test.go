package realtime

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestHubRefCountsChannels(t *testing.T) {
	transport := NewMemoryTransport()
	hub := NewHub(transport)
	defer hub.Close()

	unsub1, err := hub.Subscribe("events", Filter{Table: "sales"}, func(Event) {})
	if err != nil {
		t.Fatalf("first Subscribe failed: %v", err)
	}
	unsub2, err := hub.Subscribe("events", Filter{Table: "users"}, func(Event) {})
	if err != nil {
		t.Fatalf("second Subscribe failed: %v", err)
	}

	if got := transport.OpenCount(); got != 1 {
		t.Errorf("two subscriptions opened %d transport channels, want 1", got)
	}
	if got := hub.SubscriberCount("events"); got != 2 {
		t.Errorf("SubscriberCount = %d, want 2", got)
	}

	if err := unsub1(); err != nil {
		t.Fatalf("first unsubscribe failed: %v", err)
	}
	if got := transport.CloseCount(); got != 0 {
		t.Errorf("channel closed while a subscriber remained")
	}

	if err := unsub2(); err != nil {
		t.Fatalf("last unsubscribe failed: %v", err)
	}
	if got := transport.CloseCount(); got != 1 {
		t.Errorf("last unsubscribe closed %d channels, want 1", got)
	}
}

func TestHubReopensAfterLastUnsubscribe(t *testing.T) {
	transport := NewMemoryTransport()
	hub := NewHub(transport)
	defer hub.Close()

	unsub, err := hub.Subscribe("events", Filter{}, func(Event) {})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := unsub(); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}

	if _, err := hub.Subscribe("events", Filter{}, func(Event) {}); err != nil {
		t.Fatalf("re-subscribe failed: %v", err)
	}
	if got := transport.OpenCount(); got != 2 {
		t.Errorf("OpenCount = %d, want 2 (channel reopened)", got)
	}
}

func TestHubFiltersDelivery(t *testing.T) {
	transport := NewMemoryTransport()
	hub := NewHub(transport)
	defer hub.Close()

	var sales, updates, lowStock atomic.Int64

	mustSubscribe(t, hub, "events", Filter{Table: "sales"}, &sales)
	mustSubscribe(t, hub, "events", Filter{Table: "products", Types: []EventType{EventUpdate}}, &updates)
	mustSubscribe(t, hub, "events", Filter{
		Table:     "products",
		Types:     []EventType{EventUpdate},
		Predicate: &Predicate{Column: "quantity", Op: "lt", Value: 5},
	}, &lowStock)

	transport.Emit("events", Event{Table: "sales", Type: EventInsert, New: map[string]any{"id": "s1"}})
	transport.Emit("events", Event{Table: "products", Type: EventInsert, New: map[string]any{"quantity": 1.0}})
	transport.Emit("events", Event{Table: "products", Type: EventUpdate, New: map[string]any{"quantity": 40.0}})
	transport.Emit("events", Event{Table: "products", Type: EventUpdate, New: map[string]any{"quantity": 2.0}})

	if got := sales.Load(); got != 1 {
		t.Errorf("sales handler ran %d times, want 1", got)
	}
	if got := updates.Load(); got != 2 {
		t.Errorf("update handler ran %d times, want 2", got)
	}
	if got := lowStock.Load(); got != 1 {
		t.Errorf("low-stock handler ran %d times, want 1", got)
	}
}

func mustSubscribe(t *testing.T, hub *Hub, name string, filter Filter, counter *atomic.Int64) {
	t.Helper()
	if _, err := hub.Subscribe(name, filter, func(Event) { counter.Add(1) }); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
}

func TestHubClosedRejectsSubscribe(t *testing.T) {
	hub := NewHub(NewMemoryTransport())
	if err := hub.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := hub.Subscribe("events", Filter{}, func(Event) {}); err == nil {
		t.Fatal("Subscribe on closed hub should fail")
	}
}

// gatedTransport blocks Open until the test feeds an outcome through
// release, so a second subscriber can join while the open is in flight.
type gatedTransport struct {
	inner   *MemoryTransport
	started chan struct{}
	release chan error
}

func (t *gatedTransport) Open(name string, deliver func(Event)) (func() error, error) {
	t.started <- struct{}{}
	if err := <-t.release; err != nil {
		return nil, err
	}
	return t.inner.Open(name, deliver)
}

func TestHubOpenFailureDropsJoiners(t *testing.T) {
	transport := &gatedTransport{
		inner:   NewMemoryTransport(),
		started: make(chan struct{}, 2),
		release: make(chan error, 1),
	}
	hub := NewHub(transport)

	openerErr := make(chan error, 1)
	go func() {
		_, err := hub.Subscribe("events", Filter{}, func(Event) {})
		openerErr <- err
	}()
	<-transport.started

	// Join while the opener is still inside transport.Open.
	if _, err := hub.Subscribe("events", Filter{}, func(Event) {}); err != nil {
		t.Fatalf("joiner Subscribe failed: %v", err)
	}

	transport.release <- errors.New("dial failed")
	if err := <-openerErr; err == nil {
		t.Fatal("opener Subscribe should report the open failure")
	}
	if got := hub.SubscriberCount("events"); got != 0 {
		t.Errorf("after failed open %d subscribers remain, want 0", got)
	}

	// A fresh Subscribe reopens the channel and delivers again.
	var delivered atomic.Int32
	transport.release <- nil
	unsub, err := hub.Subscribe("events", Filter{}, func(Event) { delivered.Add(1) })
	if err != nil {
		t.Fatalf("Subscribe after failed open: %v", err)
	}
	<-transport.started
	defer unsub()

	transport.inner.Emit("events", Event{Table: "sales", Type: EventInsert})
	if got := delivered.Load(); got != 1 {
		t.Errorf("delivered %d events after reopen, want 1", got)
	}
}

func TestPredicateMatches(t *testing.T) {
	ev := func(v any) Event { return Event{New: map[string]any{"quantity": v}} }

	tests := []struct {
		name string
		pred Predicate
		ev   Event
		want bool
	}{
		{"lt match", Predicate{"quantity", "lt", 5}, ev(2.0), true},
		{"lt boundary", Predicate{"quantity", "lt", 5}, ev(5.0), false},
		{"lte boundary", Predicate{"quantity", "lte", 5}, ev(5.0), true},
		{"gt match", Predicate{"quantity", "gt", 10}, ev(11.0), true},
		{"gte boundary", Predicate{"quantity", "gte", 10}, ev(10.0), true},
		{"eq match", Predicate{"quantity", "eq", 0}, ev(0.0), true},
		{"neq match", Predicate{"quantity", "neq", 0}, ev(3.0), true},
		{"numeric string", Predicate{"quantity", "lt", 5}, ev("2"), true},
		{"missing column", Predicate{"quantity", "lt", 5}, Event{New: map[string]any{}}, false},
		{"non-numeric value", Predicate{"quantity", "lt", 5}, ev("soon"), false},
		{"unknown op", Predicate{"quantity", "like", 5}, ev(2.0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred.Matches(tt.ev); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredicateString(t *testing.T) {
	p := Predicate{Column: "quantity", Op: "lt", Value: 5}
	if got := p.String(); got != "quantity=lt.5" {
		t.Errorf("String() = %q, want %q", got, "quantity=lt.5")
	}
}

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		ev     Event
		want   bool
	}{
		{"table only", Filter{Table: "sales"}, Event{Table: "sales", Type: EventInsert}, true},
		{"wrong table", Filter{Table: "sales"}, Event{Table: "debts", Type: EventInsert}, false},
		{"type restricted", Filter{Table: "sales", Types: []EventType{EventInsert}}, Event{Table: "sales", Type: EventDelete}, false},
		{"empty filter matches all", Filter{}, Event{Table: "anything", Type: EventUpdate}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.ev); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
