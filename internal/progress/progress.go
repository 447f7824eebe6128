package progress

import (
	"maps"
	"slices"
)

// NotStarted is the CurrentStepOrder of an agent that has not entered any step.
const NotStarted = -1

// AgentProgress is one agent's position in a curriculum.
type AgentProgress struct {
	// CurrentStepOrder is NotStarted or the order of an existing step.
	CurrentStepOrder int `json:"current_step_order"`

	// Completed holds the orders of completed steps. It only grows.
	Completed map[int]bool `json:"completed"`

	// Attempts counts attempts started per step order.
	Attempts map[int]int `json:"attempts"`

	// Ended is set once the agent's curriculum reached a terminal state.
	Ended bool `json:"ended"`
}

func newAgentProgress() *AgentProgress {
	return &AgentProgress{
		CurrentStepOrder: NotStarted,
		Completed:        make(map[int]bool),
		Attempts:         make(map[int]int),
	}
}

// IsCompleted reports whether the step with the given order was completed.
func (p AgentProgress) IsCompleted(order int) bool {
	return p.Completed[order]
}

// CompletedOrders returns completed step orders in ascending order.
func (p AgentProgress) CompletedOrders() []int {
	return slices.Sorted(maps.Keys(p.Completed))
}

// TotalAttempts sums attempts across all steps.
func (p AgentProgress) TotalAttempts() int {
	n := 0
	for _, a := range p.Attempts {
		n += a
	}
	return n
}

func (p AgentProgress) clone() AgentProgress {
	out := p
	out.Completed = maps.Clone(p.Completed)
	out.Attempts = maps.Clone(p.Attempts)
	if out.Completed == nil {
		out.Completed = make(map[int]bool)
	}
	if out.Attempts == nil {
		out.Attempts = make(map[int]int)
	}
	return out
}
