package sim

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/abhisek/scaffold/internal/orchestrator"
	"github.com/abhisek/scaffold/internal/telemetry"
)

// Environment replays scripted frames. Each interaction cycle publishes the
// agent's next frame to the telemetry memory; the last frame repeats once
// the script runs out.
type Environment struct {
	mem *telemetry.Memory

	mu       sync.Mutex
	scripts  map[string][]Frame
	cursor   map[string]int
	done     map[string]bool
	cycles   map[string]int
	reconfig []map[string]any
}

// NewEnvironment creates an Environment publishing to mem.
func NewEnvironment(mem *telemetry.Memory) *Environment {
	return &Environment{
		mem:     mem,
		scripts: make(map[string][]Frame),
		cursor:  make(map[string]int),
		done:    make(map[string]bool),
		cycles:  make(map[string]int),
	}
}

// Telemetry returns the memory the environment publishes to. It is the
// telemetry source the orchestrator should read.
func (e *Environment) Telemetry() *telemetry.Memory { return e.mem }

// Script replaces the frames for agentID and rewinds it.
func (e *Environment) Script(agentID string, frames ...Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[agentID] = frames
	e.cursor[agentID] = 0
	e.done[agentID] = false
}

// SetMetric publishes a single metric outside any frame.
func (e *Environment) SetMetric(agentID, name string, value any) {
	e.mem.Set(agentID, name, value)
}

func (e *Environment) Reconfigure(_ context.Context, cfg map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reconfig = append(e.reconfig, maps.Clone(cfg))
	return nil
}

func (e *Environment) RunInteractionCycle(_ context.Context, agentID string) (orchestrator.Outcome, error) {
	e.mu.Lock()
	frames, ok := e.scripts[agentID]
	if !ok {
		e.mu.Unlock()
		return orchestrator.Outcome{}, fmt.Errorf("no script for agent %q", agentID)
	}
	e.cycles[agentID]++
	if len(frames) == 0 {
		e.mu.Unlock()
		return orchestrator.Outcome{}, nil
	}

	i := min(e.cursor[agentID], len(frames)-1)
	frame := frames[i]
	e.cursor[agentID]++
	e.done[agentID] = frame.Done
	e.mu.Unlock()

	e.mem.SetAll(agentID, frame.Metrics)
	return orchestrator.Outcome{
		Done:   frame.Done,
		Detail: map[string]any{"frame": i},
	}, nil
}

func (e *Environment) IsTaskDone(_ context.Context, agentID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done[agentID]
}

// Cycles returns how many interaction cycles ran for agentID.
func (e *Environment) Cycles(agentID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycles[agentID]
}

// Reconfigurations returns every configuration applied, in order.
func (e *Environment) Reconfigurations() []map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]map[string]any(nil), e.reconfig...)
}
