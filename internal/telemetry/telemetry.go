// Package telemetry defines the read-only metric lookup the orchestrator
// uses to judge agent performance.
package telemetry

import (
	"context"
	"maps"
	"sync"
)

// Source looks up a metric for an agent. ok is false when the metric has
// not been reported. Implementations own their timeout policy.
type Source interface {
	Metric(ctx context.Context, agentID, name string) (value any, ok bool, err error)
}

// Memory is an in-process Source backed by a map. It is safe for
// concurrent use.
type Memory struct {
	mu      sync.RWMutex
	metrics map[string]map[string]any
}

// NewMemory returns an empty Memory source.
func NewMemory() *Memory {
	return &Memory{metrics: make(map[string]map[string]any)}
}

func (m *Memory) Metric(_ context.Context, agentID, name string) (any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.metrics[agentID][name]
	return v, ok, nil
}

// Set records a metric value for an agent.
func (m *Memory) Set(agentID, name string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metrics[agentID] == nil {
		m.metrics[agentID] = make(map[string]any)
	}
	m.metrics[agentID][name] = value
}

// SetAll merges values into the agent's metrics.
func (m *Memory) SetAll(agentID string, values map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metrics[agentID] == nil {
		m.metrics[agentID] = make(map[string]any, len(values))
	}
	maps.Copy(m.metrics[agentID], values)
}

// Delete removes a metric.
func (m *Memory) Delete(agentID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.metrics[agentID], name)
}

// All returns a copy of the agent's metrics.
func (m *Memory) All(agentID string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.metrics[agentID])
}
