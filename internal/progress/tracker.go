// Package progress tracks where each agent is in a curriculum.
package progress

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/abhisek/scaffold/internal/curriculum"
)

var (
	ErrUnknownAgent = errors.New("unknown agent")
	ErrUnknownStep  = errors.New("unknown step")
	ErrEnded        = errors.New("curriculum already ended for agent")
)

// Tracker owns the progress of every agent assigned to one curriculum.
// All mutation of AgentProgress goes through its methods.
type Tracker struct {
	mu         sync.RWMutex
	curriculum *curriculum.Curriculum
	agents     map[string]*AgentProgress
}

// NewTracker creates an empty tracker for c.
func NewTracker(c *curriculum.Curriculum) *Tracker {
	return &Tracker{
		curriculum: c,
		agents:     make(map[string]*AgentProgress),
	}
}

// Curriculum returns the curriculum this tracker is bound to.
func (t *Tracker) Curriculum() *curriculum.Curriculum {
	return t.curriculum
}

// Initialize (re)creates the agent's progress in the not-started state.
func (t *Tracker) Initialize(agentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.agents[agentID] = newAgentProgress()
}

// NextStep returns the step after the agent's current one in list order.
// For an agent that has not started it returns the first step.
func (t *Tracker) NextStep(agentID string) (curriculum.Step, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.agents[agentID]
	if !ok || p.Ended {
		return curriculum.Step{}, false
	}
	if p.CurrentStepOrder == NotStarted {
		return t.curriculum.First()
	}
	i := t.curriculum.Index(p.CurrentStepOrder)
	if i < 0 {
		return curriculum.Step{}, false
	}
	return t.curriculum.At(i + 1)
}

// SetCurrentStep moves the agent to the step with the given order. When
// incrementAttempt is set the attempt counter for that step goes up by one.
// An unknown order leaves the progress untouched.
func (t *Tracker) SetCurrentStep(agentID string, order int, incrementAttempt bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.get(agentID)
	if err != nil {
		return err
	}
	if p.Ended {
		return fmt.Errorf("set step %d for %q: %w", order, agentID, ErrEnded)
	}
	if !t.curriculum.HasOrder(order) {
		return fmt.Errorf("set step %d for %q: %w", order, agentID, ErrUnknownStep)
	}

	p.CurrentStepOrder = order
	if incrementAttempt {
		p.Attempts[order]++
	} else if _, ok := p.Attempts[order]; !ok {
		p.Attempts[order] = 0
	}
	return nil
}

// CompleteStep marks a step completed. Completing a step twice is a no-op.
func (t *Tracker) CompleteStep(agentID string, order int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.get(agentID)
	if err != nil {
		return err
	}
	if !t.curriculum.HasOrder(order) {
		return fmt.Errorf("complete step %d for %q: %w", order, agentID, ErrUnknownStep)
	}
	p.Completed[order] = true
	return nil
}

// StepAttempts returns how many attempts of the step the agent started.
func (t *Tracker) StepAttempts(agentID string, order int) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if p, ok := t.agents[agentID]; ok {
		return p.Attempts[order]
	}
	return 0
}

// CurrentStep returns the agent's current step. It reports false for
// unknown agents, agents that have not started, and ended curricula.
func (t *Tracker) CurrentStep(agentID string) (curriculum.Step, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.agents[agentID]
	if !ok || p.Ended || p.CurrentStepOrder == NotStarted {
		return curriculum.Step{}, false
	}
	return t.curriculum.StepByOrder(p.CurrentStepOrder)
}

// Lookup resolves a step by order or name.
func (t *Tracker) Lookup(identifier string) (curriculum.Step, bool) {
	return t.curriculum.Lookup(identifier)
}

// End marks the agent's curriculum as over. The recorded position and
// attempts are kept for reporting.
func (t *Tracker) End(agentID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.get(agentID)
	if err != nil {
		return err
	}
	p.Ended = true
	return nil
}

// Progress returns a copy of the agent's progress.
func (t *Tracker) Progress(agentID string) (AgentProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.agents[agentID]
	if !ok {
		return AgentProgress{}, false
	}
	return p.clone(), true
}

// Agents returns the tracked agent IDs in sorted order.
func (t *Tracker) Agents() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.agents))
}

// Snapshot returns a deep copy of every agent's progress.
func (t *Tracker) Snapshot() map[string]AgentProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]AgentProgress, len(t.agents))
	for id, p := range t.agents {
		out[id] = p.clone()
	}
	return out
}

// Restore replaces the tracked progress with snap. Entries that reference
// steps unknown to the curriculum are rejected and nothing is changed.
func (t *Tracker) Restore(snap map[string]AgentProgress) error {
	restored := make(map[string]*AgentProgress, len(snap))
	for id, p := range snap {
		if p.CurrentStepOrder != NotStarted && !t.curriculum.HasOrder(p.CurrentStepOrder) {
			return fmt.Errorf("restore %q: current step %d: %w", id, p.CurrentStepOrder, ErrUnknownStep)
		}
		for order := range p.Completed {
			if !t.curriculum.HasOrder(order) {
				return fmt.Errorf("restore %q: completed step %d: %w", id, order, ErrUnknownStep)
			}
		}
		c := p.clone()
		restored[id] = &c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.agents = restored
	return nil
}

// get returns the live progress for agentID. Callers must hold t.mu.
func (t *Tracker) get(agentID string) (*AgentProgress, error) {
	p, ok := t.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", agentID, ErrUnknownAgent)
	}
	return p, nil
}
