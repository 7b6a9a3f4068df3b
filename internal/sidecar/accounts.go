// Package sidecar launches and observes the external proxy executable.
//
// The sidecar owns its own credentials and request forwarding; this package
// only checks that it is usable, starts it detached, and watches its health
// endpoint. Nothing here ever stops a sidecar once it is running.
package sidecar

import (
	"fmt"
	"os/exec"
	"strings"
)

// AccountState classifies the outcome of the account precondition check.
// A definite "no accounts" answer blocks bootstrap; a crashed or noisy check
// does not.
type AccountState string

const (
	AccountsConfigured   AccountState = "configured"
	AccountsUnconfigured AccountState = "unconfigured"
	AccountsInconclusive AccountState = "inconclusive"
)

// AccountsStatus is the result of one precondition check.
type AccountsStatus struct {
	State AccountState
	Raw   string
}

// noAccountsSentinel is the string the sidecar prints when no credentials
// have been established.
const noAccountsSentinel = "No accounts"

// Locate resolves the sidecar executable on PATH (or verifies an explicit
// path). A miss here is a configuration error and must abort before any port
// probing happens.
func Locate(executable string) (string, error) {
	path, err := exec.LookPath(executable)
	if err != nil {
		return "", fmt.Errorf("sidecar executable %q not found: %w", executable, err)
	}
	return path, nil
}

// RemediationCommand is the literal command the operator must run out-of-band
// when the sidecar has no accounts.
func RemediationCommand(executable string) string {
	return fmt.Sprintf("%s accounts login", executable)
}

// CheckAccounts runs the sidecar's account-listing subcommand and classifies
// the output.
//
// An invocation failure without the sentinel is inconclusive, not fatal:
// bootstrap proceeds and the health check decides whether the sidecar
// actually works.
func CheckAccounts(exePath string) AccountsStatus {
	out, err := exec.Command(exePath, "accounts", "list").CombinedOutput()
	raw := strings.TrimSpace(string(out))

	if strings.Contains(raw, noAccountsSentinel) {
		return AccountsStatus{State: AccountsUnconfigured, Raw: raw}
	}
	if err != nil {
		return AccountsStatus{State: AccountsInconclusive, Raw: raw}
	}
	if raw == "" {
		return AccountsStatus{State: AccountsUnconfigured, Raw: raw}
	}
	return AccountsStatus{State: AccountsConfigured, Raw: raw}
}
