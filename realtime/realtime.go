// Package realtime provides the change-feed subscription layer for the
// admin dashboard. It maps table-level change events delivered by the
// backend's realtime service onto in-process handlers, with event-type
// and column-predicate filtering and reference-counted channel ownership.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// EventType identifies the kind of row change carried by an Event.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is a single change delivered by the backend's change feed.
// New holds the row after the change, Old the row before it (only
// populated for updates and deletes, and only the replica-identity
// columns at that).
type Event struct {
	Table string
	Type  EventType
	New   map[string]any
	Old   map[string]any
}

// Predicate is an optional column comparison applied server-side or, for
// transports that cannot push it down, by the hub before delivery.
// Supported operators: eq, neq, lt, lte, gt, gte.
type Predicate struct {
	Column string
	Op     string
	Value  float64
}

// Matches reports whether the event's New row satisfies the predicate.
// A row without the column, or with a non-numeric value, never matches.
func (p Predicate) Matches(ev Event) bool {
	raw, ok := ev.New[p.Column]
	if !ok {
		return false
	}
	v, ok := toFloat(raw)
	if !ok {
		return false
	}

	switch p.Op {
	case "eq":
		return v == p.Value
	case "neq":
		return v != p.Value
	case "lt":
		return v < p.Value
	case "lte":
		return v <= p.Value
	case "gt":
		return v > p.Value
	case "gte":
		return v >= p.Value
	}
	return false
}

// String renders the predicate in the backend's filter syntax,
// e.g. "quantity=lt.5".
func (p Predicate) String() string {
	return fmt.Sprintf("%s=%s.%g", p.Column, p.Op, p.Value)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// Filter selects which events a subscriber receives: a table (empty
// means any), a set of event types (empty means all), and an optional
// column predicate.
type Filter struct {
	Table     string
	Types     []EventType
	Predicate *Predicate
}

// Matches reports whether the event passes this filter.
func (f Filter) Matches(ev Event) bool {
	if f.Table != "" && ev.Table != f.Table {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == ev.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Predicate != nil && !f.Predicate.Matches(ev) {
		return false
	}
	return true
}

// Transport is the underlying realtime connection to the backend.
// Open establishes a channel that delivers every change event for the
// named logical channel to deliver; the returned close function tears the
// channel down. Reconnection after a transport-level drop is the
// transport's own concern; the hub never retries.
type Transport interface {
	Open(channel string, deliver func(Event)) (close func() error, err error)
}

// ErrClosed is returned when subscribing on a hub that has been closed.
var ErrClosed = errors.New("realtime: hub is closed")
