package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"go.skov.dev/proxyward/internal/core"
	"go.skov.dev/proxyward/internal/sidecar"
)

// SidecarStatus is the status command's view of one registered sidecar.
type SidecarStatus struct {
	Port      int       `json:"port"`
	Pid       int       `json:"pid"`
	StartTime time.Time `json:"start_time"`
	Alive     bool      `json:"alive"`
	Listening bool      `json:"listening"`
	Healthy   bool      `json:"healthy"`
	LogPath   string    `json:"log_path"`
}

func NewStatusCommand() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show all registered sidecars and their health",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			registry, err := sidecar.LoadRegistry(core.GetRegistryPath())
			if err != nil {
				slog.Error(fmt.Sprintf("Failed to load sidecar registry: %v", err))
				os.Exit(1)
			}

			statuses := collectStatuses(cmd.Context(), registry)

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "text":
				if len(statuses) == 0 {
					fmt.Println("No sidecars registered.")
					return
				}
				fmt.Println("Registered sidecars:")
				for _, status := range statuses {
					age := time.Since(status.StartTime)
					fmt.Printf(
						"  - port %d (PID: %d, Age: %s, %s)\n",
						status.Port, status.Pid, age.Round(time.Second),
						describeStatus(status),
					)
				}
			case "json":
				jsonBytes, _ := json.Marshal(statuses)
				fmt.Println(string(jsonBytes))
			default:
				slog.Error("unknown format")
				os.Exit(1)
			}
		},
	}
	statusCmd.Flags().StringP("format", "F", "text", "Format to use (text/json)")

	return statusCmd
}

// collectStatuses checks every registry entry three ways: the process exists,
// it holds a listener on its port, and the health endpoint answers.
func collectStatuses(ctx context.Context, registry *sidecar.Registry) []SidecarStatus {
	var statuses []SidecarStatus
	for _, h := range registry.Entries() {
		status := SidecarStatus{
			Port:      h.Port,
			Pid:       h.Pid,
			StartTime: h.StartTime,
			Alive:     h.Alive(),
			LogPath:   h.LogPath,
		}
		if status.Alive {
			status.Listening = isListening(h.Pid, h.Port)
			status.Healthy = sidecar.Probe(ctx, h.Port)
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// isListening reports whether the process holds a TCP listener on the port.
// A sidecar that is alive but not listening is still starting up or wedged.
func isListening(pid, port int) bool {
	if _, err := process.NewProcess(int32(pid)); err != nil {
		return false
	}
	conns, err := psnet.ConnectionsPid("tcp", int32(pid))
	if err != nil {
		return false
	}
	for _, conn := range conns {
		if conn.Status == "LISTEN" && int(conn.Laddr.Port) == port {
			return true
		}
	}
	return false
}

func describeStatus(s SidecarStatus) string {
	switch {
	case !s.Alive:
		return colorRed + "dead" + colorReset
	case s.Healthy:
		return colorGreen + "healthy" + colorReset
	case s.Listening:
		return colorYellow + "listening, not healthy" + colorReset
	default:
		return colorYellow + "starting" + colorReset
	}
}
