package realtime

import (
	"fmt"
	"sync"
)

// channelState tracks the lifecycle of one underlying transport channel.
type channelState int

const (
	stateDisconnected channelState = iota
	stateConnecting
	stateSubscribed
)

type subscriber struct {
	id      int
	filter  Filter
	handler func(Event)
}

type channel struct {
	mu    sync.Mutex
	state channelState
	subs  map[int]*subscriber
	close func() error
}

// Hub multiplexes realtime subscriptions over a Transport.
//
// Channel ownership is reference counted by channel name: the first
// Subscribe for a name opens the underlying transport channel, later
// subscribers share it, and the last Unsubscribe closes it. This keeps
// exactly one backend channel alive per purpose no matter how many views
// are simultaneously interested.
type Hub struct {
	transport Transport

	mu       sync.Mutex
	channels map[string]*channel
	nextID   int
	closed   bool
}

// NewHub creates a hub over the given transport.
func NewHub(transport Transport) *Hub {
	return &Hub{
		transport: transport,
		channels:  make(map[string]*channel),
	}
}

// Subscribe registers handler for events matching filter on the named
// channel. The returned function removes the subscription; when it is the
// last one on the channel, the underlying transport channel is closed.
func (h *Hub) Subscribe(name string, filter Filter, handler func(Event)) (func() error, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.nextID++
	id := h.nextID
	ch, ok := h.channels[name]
	if !ok {
		ch = &channel{subs: make(map[int]*subscriber)}
		h.channels[name] = ch
	}
	h.mu.Unlock()

	ch.mu.Lock()
	ch.subs[id] = &subscriber{id: id, filter: filter, handler: handler}
	needOpen := ch.state == stateDisconnected
	if needOpen {
		ch.state = stateConnecting
	}
	ch.mu.Unlock()

	if needOpen {
		closeFn, err := h.transport.Open(name, func(ev Event) { ch.dispatch(ev) })
		ch.mu.Lock()
		if err != nil {
			// Subscribers that joined while the open was in flight sit
			// on a channel that will never deliver; drop them along
			// with the opener so a later Subscribe starts clean.
			ch.state = stateDisconnected
			ch.subs = make(map[int]*subscriber)
			ch.mu.Unlock()
			h.mu.Lock()
			if cur, ok := h.channels[name]; ok && cur == ch {
				delete(h.channels, name)
			}
			h.mu.Unlock()
			return nil, fmt.Errorf("realtime: failed to open channel %q: %w", name, err)
		}
		ch.state = stateSubscribed
		ch.close = closeFn
		ch.mu.Unlock()
	}

	return func() error { return h.unsubscribe(name, id) }, nil
}

func (h *Hub) unsubscribe(name string, id int) error {
	h.mu.Lock()
	ch, ok := h.channels[name]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	ch.mu.Lock()
	delete(ch.subs, id)
	var closeFn func() error
	if len(ch.subs) == 0 && ch.state != stateDisconnected {
		closeFn = ch.close
		ch.close = nil
		ch.state = stateDisconnected
	}
	ch.mu.Unlock()

	if closeFn != nil {
		h.mu.Lock()
		if cur, ok := h.channels[name]; ok && cur == ch {
			delete(h.channels, name)
		}
		h.mu.Unlock()
		return closeFn()
	}
	return nil
}

// SubscriberCount returns the number of live subscriptions on the named
// channel. Intended for tests.
func (h *Hub) SubscriberCount(name string) int {
	h.mu.Lock()
	ch, ok := h.channels[name]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.subs)
}

// Close tears down every open channel. Subscribing afterwards fails with
// ErrClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	channels := h.channels
	h.channels = make(map[string]*channel)
	h.mu.Unlock()

	var errs []error
	for name, ch := range channels {
		ch.mu.Lock()
		closeFn := ch.close
		ch.close = nil
		ch.state = stateDisconnected
		ch.subs = make(map[int]*subscriber)
		ch.mu.Unlock()
		if closeFn != nil {
			if err := closeFn(); err != nil {
				errs = append(errs, fmt.Errorf("channel %q: %w", name, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("realtime: errors during close: %v", errs)
	}
	return nil
}

func (c *channel) dispatch(ev Event) {
	c.mu.Lock()
	subs := make([]*subscriber, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		if s.filter.Matches(ev) {
			s.handler(ev)
		}
	}
}
