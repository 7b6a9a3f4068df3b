package bootstrap

import "fmt"

// ConfigError is a non-retryable failure: missing executable or missing
// credentials. The operator has to intervene before bootstrap can work, so
// Remedy carries the literal command to run when there is one.
type ConfigError struct {
	Err    error
	Remedy string
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToolError is an environmental failure (port exhaustion, startup timeout).
// Retrying the whole bootstrap may succeed, but this package never retries on
// its own; the caller decides.
type ToolError struct {
	Stage string
	Err   error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
