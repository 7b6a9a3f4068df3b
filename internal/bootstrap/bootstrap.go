// Package bootstrap sequences the sidecar startup: precondition check, port
// allocation, detached launch, health poll, published result.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.skov.dev/proxyward/internal/netalloc"
	"go.skov.dev/proxyward/internal/sidecar"
)

// Config is the immutable input to one bootstrap attempt.
type Config struct {
	Executable     string
	Provider       string
	PreferredPort  int
	PortWindow     int
	HealthTimeout  time.Duration
	HealthInterval time.Duration
	StateDir       string
}

// Validate enforces the invariants the stages rely on.
func (c Config) Validate() error {
	if c.PortWindow < 1 {
		return fmt.Errorf("port window must be at least 1, got %d", c.PortWindow)
	}
	if c.HealthTimeout <= 0 {
		return fmt.Errorf("health timeout must be positive, got %s", c.HealthTimeout)
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("health interval must be positive, got %s", c.HealthInterval)
	}
	if c.HealthInterval > c.HealthTimeout {
		return fmt.Errorf("health interval (%s) must not exceed timeout (%s)", c.HealthInterval, c.HealthTimeout)
	}
	return nil
}

// Result is the published outcome of a successful bootstrap. Downstream
// request routing consumes BaseURL and Provider; nothing here is global
// state, the caller decides how to surface it.
type Result struct {
	BaseURL  string `json:"base_url"`
	Provider string `json:"provider"`
	Port     int    `json:"port"`
	Pid      int    `json:"pid"`
	Ready    bool   `json:"ready"`
	Reused   bool   `json:"reused"`
}

// EventLogger records stage outcomes for the history command. Logging is
// best-effort; a nil logger disables it.
type EventLogger interface {
	LogBootstrapEvent(eventType, details string) error
}

// Orchestrator runs the bootstrap stages in order and stops at the first
// fatal one. It holds the registry of sidecars it has spawned so a second
// call can reuse a healthy instance instead of spawning a duplicate.
type Orchestrator struct {
	cfg      Config
	registry *sidecar.Registry
	events   EventLogger
}

func New(cfg Config, registry *sidecar.Registry, events EventLogger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		events:   events,
	}
}

// logEvent records an event if a logger is set.
func (o *Orchestrator) logEvent(eventType, details string) {
	if o.events == nil {
		return
	}
	if err := o.events.LogBootstrapEvent(eventType, details); err != nil {
		slog.Error("Failed to log bootstrap event", "error", err)
	}
}

// Up runs one bootstrap attempt.
//
// Stage order is fixed: executable lookup, account check, port allocation,
// detached launch, health poll. A failed stage aborts the rest. Failures
// come back as *ConfigError (operator must act) or *ToolError (environment;
// caller may retry the whole bootstrap). Once the sidecar is spawned no
// failure path terminates it: a timed-out sidecar is left running and the
// leak is accepted.
func (o *Orchestrator) Up(ctx context.Context) (*Result, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}

	// Reuse a sidecar from a previous invocation when it is still alive and
	// answering, rather than spawning a duplicate.
	if o.registry != nil {
		if h := o.registry.FindAlive(); h != nil && sidecar.Probe(ctx, h.Port) {
			slog.Info("Reusing running sidecar", "port", h.Port, "pid", h.Pid)
			return o.result(h, true), nil
		}
	}

	exePath, err := sidecar.Locate(o.cfg.Executable)
	if err != nil {
		o.logEvent("executable_missing", err.Error())
		return nil, &ConfigError{Err: err}
	}

	status := sidecar.CheckAccounts(exePath)
	switch status.State {
	case sidecar.AccountsUnconfigured:
		o.logEvent("accounts_unconfigured", status.Raw)
		return nil, &ConfigError{
			Err:    fmt.Errorf("sidecar has no configured accounts"),
			Remedy: sidecar.RemediationCommand(o.cfg.Executable),
		}
	case sidecar.AccountsInconclusive:
		slog.Warn("Account check inconclusive, proceeding anyway", "output", status.Raw)
		o.logEvent("accounts_inconclusive", status.Raw)
	default:
		slog.Debug("Sidecar accounts configured")
	}

	port, err := netalloc.Allocate(o.cfg.PreferredPort, o.cfg.PortWindow)
	if err != nil {
		o.logEvent("port_exhausted", err.Error())
		return nil, &ToolError{Stage: "allocate port", Err: err}
	}

	handle, err := sidecar.Launch(exePath, port, o.cfg.StateDir)
	if err != nil {
		o.logEvent("launch_failed", err.Error())
		return nil, &ToolError{Stage: "launch sidecar", Err: err}
	}
	o.logEvent("sidecar_started", fmt.Sprintf("pid=%d port=%d", handle.Pid, handle.Port))

	if o.registry != nil {
		if err := o.registry.Register(handle); err != nil {
			// Registry persistence is advisory; the sidecar is already up
			slog.Warn("Failed to persist sidecar registry", "error", err)
		}
	}

	if err := sidecar.WaitHealthy(ctx, port, o.cfg.HealthTimeout, o.cfg.HealthInterval); err != nil {
		// The process stays registered and running; it may come up late
		o.logEvent("health_timeout", err.Error())
		return nil, &ToolError{Stage: "wait for health", Err: err}
	}

	o.logEvent("sidecar_ready", fmt.Sprintf("pid=%d port=%d", handle.Pid, handle.Port))
	slog.Info("Sidecar ready", "port", port, "pid", handle.Pid)
	return o.result(handle, false), nil
}

func (o *Orchestrator) result(h *sidecar.Handle, reused bool) *Result {
	return &Result{
		BaseURL:  fmt.Sprintf("http://localhost:%d", h.Port),
		Provider: o.cfg.Provider,
		Port:     h.Port,
		Pid:      h.Pid,
		Ready:    true,
		Reused:   reused,
	}
}
