package velmoadmin

import (
	"strconv"
	"testing"
	"time"
)

func TestToastStickyUntilRemoved(t *testing.T) {
	tc := NewToastCenter()
	id := tc.Add(ToastError, "Backend down", "retrying", 0)
	if id == "" {
		t.Fatal("Add returned empty id")
	}

	if got := tc.Active(); len(got) != 1 {
		t.Fatalf("active = %d, want 1", len(got))
	}

	tc.Remove(id)
	if got := tc.Active(); len(got) != 0 {
		t.Errorf("toast survived Remove")
	}
	if got := tc.History(); len(got) != 1 {
		t.Errorf("history = %d, want 1 (Remove must not erase history)", len(got))
	}
}

func TestToastAutoDismiss(t *testing.T) {
	tc := NewToastCenter()
	tc.Add(ToastInfo, "Hello", "world", 20*time.Millisecond)

	if got := tc.Active(); len(got) != 1 {
		t.Fatalf("active = %d, want 1", len(got))
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(tc.Active()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("toast was not auto-dismissed")
}

func TestToastHistoryNewestFirstAndCapped(t *testing.T) {
	tc := NewToastCenter()
	for i := 0; i < 60; i++ {
		tc.Add(ToastInfo, "t"+strconv.Itoa(i), "", 0)
	}

	history := tc.History()
	if len(history) != historyLimit {
		t.Fatalf("history = %d, want %d", len(history), historyLimit)
	}
	if history[0].Title != "t59" {
		t.Errorf("newest entry = %q, want t59", history[0].Title)
	}
	if history[len(history)-1].Title != "t10" {
		t.Errorf("oldest kept entry = %q, want t10", history[len(history)-1].Title)
	}
}

func TestToastClearHistory(t *testing.T) {
	tc := NewToastCenter()
	tc.Add(ToastInfo, "a", "", 0)
	tc.ClearHistory()

	if got := tc.History(); len(got) != 0 {
		t.Errorf("history = %d after clear", len(got))
	}
	if got := tc.Active(); len(got) != 1 {
		t.Errorf("ClearHistory dismissed active toasts")
	}
}

func TestToastReset(t *testing.T) {
	tc := NewToastCenter()
	tc.Add(ToastInfo, "a", "", 0)
	tc.Add(ToastInfo, "b", "", time.Minute)
	tc.Reset()

	if got := tc.Active(); len(got) != 0 {
		t.Errorf("active = %d after reset", len(got))
	}
	if got := tc.History(); len(got) != 0 {
		t.Errorf("history = %d after reset", len(got))
	}
}

func TestToastUniqueIDs(t *testing.T) {
	tc := NewToastCenter()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id := tc.Add(ToastInfo, "t", "", 0)
		if seen[id] {
			t.Fatalf("duplicate toast id %q", id)
		}
		seen[id] = true
	}
}
