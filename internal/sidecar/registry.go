package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Registry tracks spawned sidecars keyed by port, persisted as a JSON
// snapshot so separate CLI invocations see the same state. Entries are
// observations: a registered sidecar may have died since it was recorded,
// which is why readers pair Lookup with Handle.Alive.
type Registry struct {
	path    string
	mu      sync.Mutex
	entries map[int]*Handle
}

// registrySnapshot is the on-disk format.
type registrySnapshot struct {
	Version  string    `json:"version"`
	Sidecars []*Handle `json:"sidecars"`
}

const registryVersion = "1"

// LoadRegistry reads the snapshot at path, or returns an empty registry when
// none exists yet.
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{
		path:    path,
		entries: make(map[int]*Handle),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var snap registrySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	for _, h := range snap.Sidecars {
		r.entries[h.Port] = h
	}
	return r, nil
}

// Register records a handle and persists the snapshot.
func (r *Registry) Register(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[h.Port] = h
	return r.save()
}

// Lookup returns the handle registered for port, or nil.
func (r *Registry) Lookup(port int) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[port]
}

// Entries returns all registered handles ordered by port.
func (r *Registry) Entries() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]*Handle, 0, len(r.entries))
	for _, h := range r.entries {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].Port < handles[j].Port })
	return handles
}

// FindAlive returns the lowest-port handle whose process still exists, or nil.
func (r *Registry) FindAlive() *Handle {
	for _, h := range r.Entries() {
		if h.Alive() {
			return h
		}
	}
	return nil
}

// Prune drops entries whose process is gone and persists the result.
func (r *Registry) Prune() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for port, h := range r.entries {
		if !h.Alive() {
			delete(r.entries, port)
		}
	}
	return r.save()
}

// save writes the snapshot. Callers hold r.mu.
func (r *Registry) save() error {
	snap := registrySnapshot{Version: registryVersion}
	for _, h := range r.entries {
		snap.Sidecars = append(snap.Sidecars, h)
	}
	sort.Slice(snap.Sidecars, func(i, j int) bool { return snap.Sidecars[i].Port < snap.Sidecars[j].Port })

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}
