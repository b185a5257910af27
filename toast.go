package velmoadmin

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ToastLevel classifies a notification.
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
	ToastWarning ToastLevel = "warning"
	ToastInfo    ToastLevel = "info"
)

// Toast is one transient notification.
type Toast struct {
	ID        string     `json:"id"`
	Level     ToastLevel `json:"level"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

// historyLimit caps the retained notification history.
const historyLimit = 50

// defaultToastTTL is how long a toast stays active when the caller does
// not pick a duration.
const defaultToastTTL = 5 * time.Second

// ToastCenter holds the active notifications and a bounded history.
// Safe for concurrent use.
type ToastCenter struct {
	mu      sync.Mutex
	active  []Toast
	history []Toast
	timers  map[string]*time.Timer
	closed  bool
}

// NewToastCenter returns an empty notification center.
func NewToastCenter() *ToastCenter {
	return &ToastCenter{timers: make(map[string]*time.Timer)}
}

// Add records a notification and returns its id. A positive ttl
// auto-dismisses the toast after it elapses; ttl <= 0 makes the toast
// sticky until removed. The zero duration convention is resolved by
// AddDefault.
func (t *ToastCenter) Add(level ToastLevel, title, message string, ttl time.Duration) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ""
	}

	toast := Toast{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
	t.active = append(t.active, toast)

	// History keeps the newest first and never exceeds the cap.
	t.history = append([]Toast{toast}, t.history...)
	if len(t.history) > historyLimit {
		t.history = t.history[:historyLimit]
	}

	if ttl > 0 {
		id := toast.ID
		t.timers[id] = time.AfterFunc(ttl, func() {
			t.Remove(id)
		})
	}
	return toast.ID
}

// AddDefault records a notification with the standard auto-dismiss
// window.
func (t *ToastCenter) AddDefault(level ToastLevel, title, message string) string {
	return t.Add(level, title, message, defaultToastTTL)
}

// Remove dismisses an active notification. History is unaffected.
func (t *ToastCenter) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
	}
	for i, toast := range t.active {
		if toast.ID == id {
			t.active = append(t.active[:i], t.active[i+1:]...)
			return
		}
	}
}

// Active returns the currently displayed notifications, oldest first.
func (t *ToastCenter) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, len(t.active))
	copy(out, t.active)
	return out
}

// History returns up to the last 50 notifications, newest first.
func (t *ToastCenter) History() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, len(t.history))
	copy(out, t.history)
	return out
}

// ClearHistory drops the retained history without touching active
// notifications.
func (t *ToastCenter) ClearHistory() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = nil
}

// Reset dismisses everything and clears history.
func (t *ToastCenter) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	t.active = nil
	t.history = nil
}

// close stops all pending timers. Used by Client.Close.
func (t *ToastCenter) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	t.active = nil
}
