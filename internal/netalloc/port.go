// Package netalloc finds free TCP ports for the sidecar to bind.
package netalloc

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// ErrWindowExhausted is returned when every port in the scan window is taken.
var ErrWindowExhausted = errors.New("no free port in scan window")

// Allocate returns the first port in [preferred, preferred+window] that a
// trial listener can bind. The listener is closed immediately, so the port is
// a point-in-time observation, not a reservation: another process can grab it
// before the sidecar binds. The deployment scenario accepts that window.
func Allocate(preferred, window int) (int, error) {
	if window < 1 {
		return 0, fmt.Errorf("port window must be at least 1, got %d", window)
	}

	for port := preferred; port <= preferred+window; port++ {
		if probe(port) {
			if port != preferred {
				slog.Debug("Preferred port busy, using fallback",
					"preferred", preferred,
					"port", port)
			}
			return port, nil
		}
	}

	return 0, fmt.Errorf("ports %d-%d all in use: %w", preferred, preferred+window, ErrWindowExhausted)
}

// probe reports whether a TCP listener can bind the port right now.
func probe(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}
