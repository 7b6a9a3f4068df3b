package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"go.skov.dev/proxyward/internal/bootstrap"
	"go.skov.dev/proxyward/internal/core"
	"go.skov.dev/proxyward/internal/db"
	"go.skov.dev/proxyward/internal/sidecar"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func NewUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Start the proxy sidecar and publish its endpoint",
		Long: `Start the proxy sidecar and publish its endpoint.

Checks that the sidecar is authenticated, allocates a free port near the
preferred one, launches the sidecar detached, and waits for its health
endpoint to answer. If a sidecar from an earlier invocation is still healthy
it is reused instead of spawning a duplicate.

The sidecar keeps running after this command exits; proxyward never stops it.`,
		Aliases: []string{"start", "boot"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runUp(cmd)
		},
	}
}

func runUp(cmd *cobra.Command) error {
	orch, events, err := newOrchestrator()
	if events != nil {
		defer events.Close()
	}
	if err != nil {
		return err
	}

	fmt.Printf("%sStarting model proxy sidecar...%s\n", colorBold, colorReset)

	result, err := orch.Up(cmd.Context())
	if err != nil {
		var configErr *bootstrap.ConfigError
		if errors.As(err, &configErr) {
			fmt.Printf("%s✗%s %v\n", colorRed, colorReset, configErr)
			if configErr.Remedy != "" {
				fmt.Println()
				fmt.Println("Set up the sidecar first by running:")
				fmt.Printf("  %s%s%s\n", colorCyan, configErr.Remedy, colorReset)
			}
			return err
		}

		var toolErr *bootstrap.ToolError
		if errors.As(err, &toolErr) {
			fmt.Printf("%s✗%s %v\n", colorRed, colorReset, toolErr)
			if errors.Is(err, sidecar.ErrStartupTimeout) {
				fmt.Printf("%sThe sidecar was left running; check its log under %s%s\n",
					colorGray, core.GetConfigPath(), colorReset)
			}
			return err
		}
		return err
	}

	if result.Reused {
		fmt.Printf("%s✓%s Reusing healthy sidecar on port %d (PID: %d)\n",
			colorGreen, colorReset, result.Port, result.Pid)
	} else {
		fmt.Printf("%s✓%s Sidecar ready on port %d (PID: %d)\n",
			colorGreen, colorReset, result.Port, result.Pid)
	}
	fmt.Println()
	fmt.Printf("  Provider: %s\n", result.Provider)
	fmt.Printf("  Endpoint: %s%s%s\n", colorBold, result.BaseURL, colorReset)
	fmt.Println()
	fmt.Println("Point your client at the endpoint, e.g.:")
	fmt.Printf("  %sexport PROXYWARD_BASE_URL=%s%s\n", colorCyan, result.BaseURL, colorReset)
	return nil
}

// newOrchestrator assembles the orchestrator from config, registry and event
// log. A broken event database degrades to no history rather than blocking
// the bootstrap.
func newOrchestrator() (*bootstrap.Orchestrator, *db.DB, error) {
	registry, err := sidecar.LoadRegistry(core.GetRegistryPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sidecar registry: %w", err)
	}

	events, err := db.Open(core.GetDatabasePath())
	if err != nil {
		slog.Warn("Bootstrap history unavailable", "error", err)
		events = nil
	}

	cfg := bootstrap.Config{
		Executable:     core.GetSidecarExecutable(),
		Provider:       core.GetSidecarProvider(),
		PreferredPort:  core.GetPreferredPort(),
		PortWindow:     core.GetPortWindow(),
		HealthTimeout:  core.GetHealthTimeout(),
		HealthInterval: core.GetHealthInterval(),
		StateDir:       core.GetConfigPath(),
	}

	var logger bootstrap.EventLogger
	if events != nil {
		logger = events
	}
	return bootstrap.New(cfg, registry, logger), events, nil
}
