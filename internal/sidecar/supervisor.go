package sidecar

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Handle is a reference to a spawned sidecar process. The sidecar outlives
// the bootstrap call: the handle is for observation only, never for stopping
// or reaping the process.
type Handle struct {
	Pid        int       `json:"pid"`
	Port       int       `json:"port"`
	Executable string    `json:"executable"`
	LogPath    string    `json:"log_path"`
	StartTime  time.Time `json:"start_time"`
}

// Launch starts the sidecar bound to port and detaches from it.
//
// The port is handed over via the PORT environment variable. The process runs
// in its own session so it survives this CLI exiting, and its combined output
// goes to a log file under logDir. Early process death is not detected here;
// the health poller surfaces it as a timeout.
func Launch(exePath string, port int, logDir string) (*Handle, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("sidecar-%d.log", port))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create sidecar log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(exePath, "start")
	cmd.Env = append(os.Environ(), fmt.Sprintf("PORT=%d", port))
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	// Own session so the sidecar survives this process exiting
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	slog.Info("Starting sidecar",
		"executable", exePath,
		"port", port,
		"log", logPath)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start sidecar: %w", err)
	}

	// Reap if it exits while we are still around; we never wait on it
	go cmd.Wait()

	return &Handle{
		Pid:        cmd.Process.Pid,
		Port:       port,
		Executable: exePath,
		LogPath:    logPath,
		StartTime:  time.Now(),
	}, nil
}

// Alive reports whether the process behind the handle still exists. Signal 0
// checks existence without touching the process.
func (h *Handle) Alive() bool {
	if h == nil || h.Pid <= 0 {
		return false
	}
	return unix.Kill(h.Pid, 0) == nil
}
