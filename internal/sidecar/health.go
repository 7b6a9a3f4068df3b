package sidecar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrStartupTimeout is returned when the sidecar never answered its health
// endpoint within the configured timeout. The spawned process is left
// running; a late arrival is harmless and killing it is not our call.
var ErrStartupTimeout = errors.New("sidecar did not become healthy before timeout")

// Probe issues a single health request and reports whether anything
// answered. Used to revalidate an already-registered sidecar without paying
// the full poll timeout.
func Probe(ctx context.Context, port int) bool {
	url := fmt.Sprintf("http://localhost:%d/health", port)
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// WaitHealthy polls GET /health on localhost:port every interval until the
// sidecar answers or the timeout elapses.
//
// Any HTTP response counts as healthy, including errors like 500: the check
// needs connectivity, not semantic health. Only connection failures keep the
// poll going.
func WaitHealthy(ctx context.Context, port int, timeout, interval time.Duration) error {
	url := fmt.Sprintf("http://localhost:%d/health", port)
	client := &http.Client{Timeout: interval}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	attempts := 0
	for {
		attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to build health request: %w", err)
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			slog.Debug("Sidecar healthy",
				"port", port,
				"attempts", attempts,
				"elapsed", time.Since(start).Round(time.Millisecond))
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("waited %s for port %d: %w",
				time.Since(start).Round(time.Millisecond), port, ErrStartupTimeout)
		case <-ticker.C:
		}
	}
}
