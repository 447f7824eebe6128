package orchestrator

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRegistered = errors.New("agent already registered")
	ErrUnknownAgent      = errors.New("unknown agent")
	ErrRunning           = errors.New("orchestrator is running")
)

// LookupError reports a branch target that names no step. It fails only
// the agent that hit it.
type LookupError struct {
	AgentID string
	Target  string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("agent %s: branch target %q does not name a step", e.AgentID, e.Target)
}

// ConfigurationWarning reports a reconfiguration port failure. The step
// continues with the previous configuration.
type ConfigurationWarning struct {
	AgentID   string
	StepOrder int
	Port      string // "environment" or "agent"
	Err       error
}

func (w *ConfigurationWarning) Error() string {
	return fmt.Sprintf("agent %s step %d: %s reconfiguration failed: %v", w.AgentID, w.StepOrder, w.Port, w.Err)
}

func (w *ConfigurationWarning) Unwrap() error { return w.Err }

// panicError wraps a value recovered from a panicking agent tick.
type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}
