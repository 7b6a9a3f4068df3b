package sidecar

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testRegistryPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "registry.json")
}

func TestLoadRegistry_MissingFileIsEmpty(t *testing.T) {
	r, err := LoadRegistry(testRegistryPath(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Entries()) != 0 {
		t.Errorf("expected empty registry, got %d entries", len(r.Entries()))
	}
}

func TestRegistry_RegisterPersistsAcrossLoads(t *testing.T) {
	path := testRegistryPath(t)
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := &Handle{
		Pid:        os.Getpid(),
		Port:       48900,
		Executable: "/usr/local/bin/modelrelay",
		StartTime:  time.Now(),
	}
	if err := r.Register(h); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	reloaded, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	got := reloaded.Lookup(48900)
	if got == nil {
		t.Fatal("expected handle for port 48900 after reload")
	}
	if got.Pid != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), got.Pid)
	}
}

func TestRegistry_EntriesOrderedByPort(t *testing.T) {
	r, _ := LoadRegistry(testRegistryPath(t))
	r.Register(&Handle{Pid: 1, Port: 48902})
	r.Register(&Handle{Pid: 1, Port: 48900})
	r.Register(&Handle{Pid: 1, Port: 48901})

	entries := r.Entries()
	for i, want := range []int{48900, 48901, 48902} {
		if entries[i].Port != want {
			t.Errorf("entry %d: expected port %d, got %d", i, want, entries[i].Port)
		}
	}
}

func TestRegistry_FindAliveSkipsDeadProcesses(t *testing.T) {
	r, _ := LoadRegistry(testRegistryPath(t))
	r.Register(&Handle{Pid: 999999999, Port: 48900})
	r.Register(&Handle{Pid: os.Getpid(), Port: 48901})

	h := r.FindAlive()
	if h == nil {
		t.Fatal("expected an alive handle")
	}
	if h.Port != 48901 {
		t.Errorf("expected the live entry on 48901, got port %d", h.Port)
	}
}

func TestRegistry_PruneDropsDeadEntries(t *testing.T) {
	path := testRegistryPath(t)
	r, _ := LoadRegistry(path)
	r.Register(&Handle{Pid: 999999999, Port: 48900})
	r.Register(&Handle{Pid: os.Getpid(), Port: 48901})

	if err := r.Prune(); err != nil {
		t.Fatalf("prune failed: %v", err)
	}

	entries := r.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after prune, got %d", len(entries))
	}
	if entries[0].Port != 48901 {
		t.Errorf("expected surviving entry on 48901, got %d", entries[0].Port)
	}

	// Prune persists
	reloaded, _ := LoadRegistry(path)
	if reloaded.Lookup(48900) != nil {
		t.Error("expected dead entry removed from snapshot")
	}
}
