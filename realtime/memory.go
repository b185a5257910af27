package realtime

import (
	"sync"
)

// MemoryTransport is an in-process Transport.
// This is useful for testing but not recommended for production.
type MemoryTransport struct {
	mu       sync.Mutex
	channels map[string][]*memoryChannel
	opens    int
	closes   int
}

type memoryChannel struct {
	name    string
	deliver func(Event)
}

// NewMemoryTransport creates a new in-memory transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{channels: make(map[string][]*memoryChannel)}
}

// Open registers an in-process channel.
func (t *MemoryTransport) Open(name string, deliver func(Event)) (func() error, error) {
	ch := &memoryChannel{name: name, deliver: deliver}

	t.mu.Lock()
	t.channels[name] = append(t.channels[name], ch)
	t.opens++
	t.mu.Unlock()

	return func() error {
		t.mu.Lock()
		defer t.mu.Unlock()
		list := t.channels[name]
		for i, c := range list {
			if c == ch {
				t.channels[name] = append(list[:i], list[i+1:]...)
				break
			}
		}
		t.closes++
		return nil
	}, nil
}

// Emit delivers an event to every open channel with the given name.
func (t *MemoryTransport) Emit(name string, ev Event) {
	t.mu.Lock()
	list := make([]*memoryChannel, len(t.channels[name]))
	copy(list, t.channels[name])
	t.mu.Unlock()

	for _, ch := range list {
		ch.deliver(ev)
	}
}

// OpenCount returns how many channels have been opened in total.
func (t *MemoryTransport) OpenCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens
}

// CloseCount returns how many channels have been closed in total.
func (t *MemoryTransport) CloseCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}
