package orchestrator

import (
	"context"

	"github.com/abhisek/scaffold/internal/hints"
)

// Outcome is what one interaction cycle reports. The orchestrator only
// inspects Done; Detail is carried into debug logs.
type Outcome struct {
	Done   bool
	Detail map[string]any
}

// Environment runs agents through interaction cycles.
type Environment interface {
	// Reconfigure applies step-specific environment overrides.
	Reconfigure(ctx context.Context, cfg map[string]any) error

	// RunInteractionCycle runs one perceive/act/learn cycle for the agent.
	RunInteractionCycle(ctx context.Context, agentID string) (Outcome, error)

	// IsTaskDone reports whether the agent finished the task at hand.
	IsTaskDone(ctx context.Context, agentID string) bool
}

// Agent is the reconfiguration port of a single agent. Agents registered
// without one only receive environment overrides.
type Agent interface {
	Configure(ctx context.Context, cfg map[string]any) error
}

// HintReceiver is implemented by agents that accept hints.
type HintReceiver interface {
	ReceiveHint(ctx context.Context, hint hints.Hint) error
}
