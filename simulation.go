package velmoadmin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// State keys shared with the dashboard frontend so a simulation survives
// process restarts and is visible to both sides.
const (
	simUserKey = "velmo_sim_user"
	simShopKey = "velmo_sim_shop"
)

// StateStore persists small key/value state across process restarts.
// Get returns ok=false when no value is stored under the key.
type StateStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryState is an in-process StateStore. Useful for testing, nothing
// survives a restart.
type MemoryState struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryState returns an empty in-process state store.
func NewMemoryState() *MemoryState {
	return &MemoryState{values: make(map[string]string)}
}

func (m *MemoryState) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryState) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryState) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// FileState is a StateStore backed by a single JSON file. Every write
// rewrites the whole file; the state is a handful of keys so this is
// cheap.
type FileState struct {
	mu   sync.Mutex
	path string
}

// NewFileState returns a StateStore persisting to path. The file is
// created on first write.
func NewFileState(path string) *FileState {
	return &FileState{path: path}
}

func (f *FileState) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("velmoadmin: failed to read state file: %w", err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("velmoadmin: corrupt state file %s: %w", f.path, err)
	}
	return values, nil
}

func (f *FileState) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("velmoadmin: failed to write state file: %w", err)
	}
	return nil
}

func (f *FileState) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileState) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *FileState) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

// Simulation is an active impersonation session: an admin browsing the
// platform as a specific user, optionally scoped to one of their shops.
type Simulation struct {
	UserID string `json:"user_id"`
	ShopID string `json:"shop_id,omitempty"`
}

// StartSimulation records an impersonation session. It persists across
// restarts until stopped.
func (c *Client) StartSimulation(userID, shopID string) error {
	if userID == "" {
		return fmt.Errorf("velmoadmin: simulation requires a user id: %w", ErrValidation)
	}
	if err := c.state.Set(simUserKey, userID); err != nil {
		return err
	}
	if shopID == "" {
		return c.state.Delete(simShopKey)
	}
	return c.state.Set(simShopKey, shopID)
}

// StopSimulation ends the impersonation session, if any.
func (c *Client) StopSimulation() error {
	if err := c.state.Delete(simUserKey); err != nil {
		return err
	}
	return c.state.Delete(simShopKey)
}

// ActiveSimulation returns the persisted impersonation session, or nil
// when none is active. Called at startup so a simulation started before
// a restart is picked up again.
func (c *Client) ActiveSimulation() (*Simulation, error) {
	userID, ok, err := c.state.Get(simUserKey)
	if err != nil {
		return nil, err
	}
	if !ok || userID == "" {
		return nil, nil
	}
	sim := &Simulation{UserID: userID}
	if shopID, ok, err := c.state.Get(simShopKey); err != nil {
		return nil, err
	} else if ok {
		sim.ShopID = shopID
	}
	return sim, nil
}
