package curriculum

import (
	"fmt"
	"maps"
	"slices"
)

// Operator is a comparison operator used by completion criteria and
// adaptation rule conditions.
type Operator string

const (
	OpEq Operator = "=="
	OpNe Operator = "!="
	OpLt Operator = "<"
	OpLe Operator = "<="
	OpGt Operator = ">"
	OpGe Operator = ">="
)

// AllOperators lists every supported operator.
var AllOperators = []Operator{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe}

// ParseOperator returns the operator for s, or false if s is not one.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(s)
	if slices.Contains(AllOperators, op) {
		return op, true
	}
	return "", false
}

// Criterion is a single completion test. All criteria of a step must hold
// for the step to count as complete.
type Criterion struct {
	Metric   string   `json:"metric" yaml:"metric"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

func (c Criterion) String() string {
	return fmt.Sprintf("%s %s %v", c.Metric, c.Operator, c.Value)
}

// Step is one unit of a curriculum. Steps are values; the maps they carry
// must be treated as read-only by callers.
type Step struct {
	Name            string
	Order           int
	Description     string
	PromptReference string
	Criteria        []Criterion
	Rules           []Rule

	// EnvironmentOverrides and AgentOverrides are opaque configuration
	// handed to the environment and agent ports when the step begins.
	EnvironmentOverrides map[string]any
	AgentOverrides       map[string]any

	// MaxInteractions bounds the interaction cycles run per attempt.
	MaxInteractions int

	// Hints maps hint IDs (as referenced by APPLY_HINT_<id> actions) to
	// static hint text.
	Hints map[string]string
}

// clone returns a copy of s that shares no slices or top-level maps.
func (s Step) clone() Step {
	out := s
	out.Criteria = slices.Clone(s.Criteria)
	out.Rules = slices.Clone(s.Rules)
	out.EnvironmentOverrides = maps.Clone(s.EnvironmentOverrides)
	out.AgentOverrides = maps.Clone(s.AgentOverrides)
	out.Hints = maps.Clone(s.Hints)
	return out
}

// Metadata holds the descriptive top-level fields of a curriculum.
type Metadata struct {
	Name        string
	Description string
	TargetStage string
	Author      string
	Version     string
}
