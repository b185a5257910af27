package velmoadmin

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFileStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	fs := NewFileState(path)

	if _, ok, err := fs.Get("missing"); err != nil || ok {
		t.Fatalf("Get on empty store = (%v, %v)", ok, err)
	}

	if err := fs.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := fs.Get("k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("Get = (%q, %v, %v)", v, ok, err)
	}

	// A fresh handle on the same path sees the persisted value.
	if v, ok, _ := NewFileState(path).Get("k"); !ok || v != "v" {
		t.Errorf("persisted value not visible to a new handle: (%q, %v)", v, ok)
	}

	if err := fs.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := fs.Get("k"); ok {
		t.Error("value survived Delete")
	}
	if err := fs.Delete("k"); err != nil {
		t.Errorf("Delete of absent key failed: %v", err)
	}
}

func TestSimulationLifecycle(t *testing.T) {
	env := newTestEnv(t)

	sim, err := env.client.ActiveSimulation()
	if err != nil || sim != nil {
		t.Fatalf("fresh client simulation = (%v, %v), want (nil, nil)", sim, err)
	}

	if err := env.client.StartSimulation("u1", "s1"); err != nil {
		t.Fatalf("StartSimulation failed: %v", err)
	}
	sim, err = env.client.ActiveSimulation()
	if err != nil {
		t.Fatalf("ActiveSimulation failed: %v", err)
	}
	if sim == nil || sim.UserID != "u1" || sim.ShopID != "s1" {
		t.Errorf("simulation = %+v", sim)
	}

	// Re-targeting without a shop drops the shop scope.
	if err := env.client.StartSimulation("u2", ""); err != nil {
		t.Fatalf("re-target failed: %v", err)
	}
	sim, _ = env.client.ActiveSimulation()
	if sim == nil || sim.UserID != "u2" || sim.ShopID != "" {
		t.Errorf("re-targeted simulation = %+v", sim)
	}

	if err := env.client.StopSimulation(); err != nil {
		t.Fatalf("StopSimulation failed: %v", err)
	}
	if sim, _ := env.client.ActiveSimulation(); sim != nil {
		t.Errorf("simulation survived Stop: %+v", sim)
	}
}

func TestStartSimulationValidation(t *testing.T) {
	env := newTestEnv(t)
	if err := env.client.StartSimulation("", "s1"); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

// A simulation started by one client is visible to the next one sharing
// the same state file, mirroring a dashboard reload.
func TestSimulationSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	fs := NewFileState(path)

	first := newTestEnv(t)
	first.client.state = fs
	if err := first.client.StartSimulation("u1", "s1"); err != nil {
		t.Fatalf("StartSimulation failed: %v", err)
	}

	second := newTestEnv(t)
	second.client.state = NewFileState(path)
	sim, err := second.client.ActiveSimulation()
	if err != nil {
		t.Fatalf("ActiveSimulation failed: %v", err)
	}
	if sim == nil || sim.UserID != "u1" || sim.ShopID != "s1" {
		t.Errorf("restarted client simulation = %+v", sim)
	}
}
