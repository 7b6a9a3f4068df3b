package sidecar

import (
	"os"
	"path/filepath"
	"testing"
)

// writeFakeSidecar writes an executable shell script posing as the sidecar
// and returns its path.
func writeFakeSidecar(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modelrelay")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake sidecar: %v", err)
	}
	return path
}

func TestCheckAccounts_Configured(t *testing.T) {
	exe := writeFakeSidecar(t, `echo "user@example.com (active)"`)

	status := CheckAccounts(exe)
	if status.State != AccountsConfigured {
		t.Errorf("expected configured, got %s (raw: %q)", status.State, status.Raw)
	}
}

func TestCheckAccounts_SentinelMeansUnconfigured(t *testing.T) {
	exe := writeFakeSidecar(t, `echo "No accounts configured. Run the login flow first."`)

	status := CheckAccounts(exe)
	if status.State != AccountsUnconfigured {
		t.Errorf("expected unconfigured, got %s", status.State)
	}
}

func TestCheckAccounts_EmptyOutputMeansUnconfigured(t *testing.T) {
	exe := writeFakeSidecar(t, `true`)

	status := CheckAccounts(exe)
	if status.State != AccountsUnconfigured {
		t.Errorf("expected unconfigured, got %s", status.State)
	}
}

func TestCheckAccounts_InvocationFailureIsInconclusive(t *testing.T) {
	exe := writeFakeSidecar(t, `echo "panic: connection refused" >&2; exit 3`)

	status := CheckAccounts(exe)
	if status.State != AccountsInconclusive {
		t.Errorf("expected inconclusive, got %s (raw: %q)", status.State, status.Raw)
	}
	if status.Raw == "" {
		t.Error("expected diagnostic output to be captured")
	}
}

func TestCheckAccounts_SentinelWinsOverExitCode(t *testing.T) {
	// Some sidecar versions exit non-zero when no accounts exist; the
	// sentinel is still a definite answer.
	exe := writeFakeSidecar(t, `echo "No accounts found"; exit 1`)

	status := CheckAccounts(exe)
	if status.State != AccountsUnconfigured {
		t.Errorf("expected unconfigured, got %s", status.State)
	}
}

func TestLocate_MissingExecutable(t *testing.T) {
	if _, err := Locate(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatal("expected error for missing executable")
	}
}

func TestLocate_AbsolutePath(t *testing.T) {
	exe := writeFakeSidecar(t, `true`)

	path, err := Locate(exe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != exe {
		t.Errorf("expected %q, got %q", exe, path)
	}
}

func TestRemediationCommand(t *testing.T) {
	got := RemediationCommand("modelrelay")
	want := "modelrelay accounts login"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
