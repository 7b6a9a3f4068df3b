package netalloc

import (
	"errors"
	"fmt"
	"net"
	"testing"
)

// findFreeRun returns a base port such that base..base+n-1 were all bindable
// at the time of the check. Candidates walk up from a high base to stay out
// of the ephemeral range other tests use.
func findFreeRun(t *testing.T, n int) int {
	t.Helper()
	for base := 42000; base < 60000; base += n + 1 {
		listeners := make([]net.Listener, 0, n)
		ok := true
		for port := base; port < base+n; port++ {
			l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
			if err != nil {
				ok = false
				break
			}
			listeners = append(listeners, l)
		}
		for _, l := range listeners {
			l.Close()
		}
		if ok {
			return base
		}
	}
	t.Fatal("could not find a run of free ports")
	return 0
}

func occupy(t *testing.T, port int) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		t.Fatalf("failed to occupy port %d: %v", port, err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAllocate_PreferredPortFree(t *testing.T) {
	base := findFreeRun(t, 3)

	port, err := Allocate(base, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != base {
		t.Errorf("expected preferred port %d, got %d", base, port)
	}
}

func TestAllocate_SkipsOccupiedPreferred(t *testing.T) {
	base := findFreeRun(t, 3)
	occupy(t, base)

	port, err := Allocate(base, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != base+1 {
		t.Errorf("expected lowest free port %d, got %d", base+1, port)
	}
}

func TestAllocate_ReturnsLowestFreePort(t *testing.T) {
	base := findFreeRun(t, 4)
	occupy(t, base)
	occupy(t, base+1)
	occupy(t, base+2)

	port, err := Allocate(base, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != base+3 {
		t.Errorf("expected lowest free port %d, got %d", base+3, port)
	}
}

func TestAllocate_WindowExhausted(t *testing.T) {
	base := findFreeRun(t, 3)
	occupy(t, base)
	occupy(t, base+1)
	occupy(t, base+2)

	_, err := Allocate(base, 2)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, ErrWindowExhausted) {
		t.Errorf("expected ErrWindowExhausted, got %v", err)
	}
}

func TestAllocate_InvalidWindow(t *testing.T) {
	for _, window := range []int{0, -1} {
		if _, err := Allocate(42000, window); err == nil {
			t.Errorf("window %d: expected error, got nil", window)
		}
	}
}

func TestAllocate_WindowIsInclusive(t *testing.T) {
	base := findFreeRun(t, 2)
	occupy(t, base)

	// Window of 1 means two candidates: base and base+1
	port, err := Allocate(base, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if port != base+1 {
		t.Errorf("expected %d, got %d", base+1, port)
	}
}
