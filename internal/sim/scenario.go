// Package sim provides a scripted environment and agents for driving the
// orchestrator without a real simulator. A scenario file lists, per agent,
// the telemetry frames each interaction cycle reports.
package sim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/scaffold/internal/curriculum"
	"github.com/abhisek/scaffold/internal/telemetry"
)

// Frame is what one interaction cycle reports for an agent.
type Frame struct {
	Metrics map[string]any `yaml:"metrics"`
	Done    bool           `yaml:"done"`
}

// AgentScript scripts one agent.
type AgentScript struct {
	ID     string  `yaml:"id"`
	Frames []Frame `yaml:"frames"`

	// FailConfigure makes the agent reject every configuration override.
	FailConfigure bool `yaml:"fail_configure"`

	// RejectHints makes the agent refuse hint delivery.
	RejectHints bool `yaml:"reject_hints"`
}

// Scenario is a scripted run.
type Scenario struct {
	// Curriculum is the curriculum file path, relative to the scenario file.
	Curriculum string        `yaml:"curriculum"`
	MaxTicks   int           `yaml:"max_ticks"`
	Agents     []AgentScript `yaml:"agents"`

	dir string
}

// LoadScenario reads and validates the scenario at path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every problem with the scenario.
func (s *Scenario) Validate() error {
	var errs []error
	if s.Curriculum == "" {
		errs = append(errs, errors.New("curriculum is required"))
	}
	if s.MaxTicks < 0 {
		errs = append(errs, fmt.Errorf("max_ticks must not be negative, got %d", s.MaxTicks))
	}
	if len(s.Agents) == 0 {
		errs = append(errs, errors.New("at least one agent is required"))
	}

	seen := make(map[string]bool, len(s.Agents))
	for i, a := range s.Agents {
		switch {
		case a.ID == "":
			errs = append(errs, fmt.Errorf("agents[%d]: id is required", i))
		case seen[a.ID]:
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate id %q", i, a.ID))
		}
		seen[a.ID] = true
	}
	return errors.Join(errs...)
}

// CurriculumPath resolves the curriculum path against the scenario file.
func (s *Scenario) CurriculumPath() string {
	if filepath.IsAbs(s.Curriculum) || s.dir == "" {
		return s.Curriculum
	}
	return filepath.Join(s.dir, s.Curriculum)
}

// LoadCurriculum loads the curriculum the scenario names.
func (s *Scenario) LoadCurriculum() (*curriculum.Curriculum, []curriculum.Warning, error) {
	return curriculum.LoadFile(s.CurriculumPath())
}

// Build creates the scripted environment and one agent per script. Agents
// are returned in scenario order.
func (s *Scenario) Build() (*Environment, []*Agent) {
	env := NewEnvironment(telemetry.NewMemory())
	agents := make([]*Agent, 0, len(s.Agents))
	for _, a := range s.Agents {
		env.Script(a.ID, a.Frames...)
		agents = append(agents, &Agent{
			ID:            a.ID,
			FailConfigure: a.FailConfigure,
			RejectHints:   a.RejectHints,
		})
	}
	return env, agents
}
