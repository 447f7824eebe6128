package curriculum

import (
	"fmt"
	"strings"
)

// AttemptsMetric is the condition metric that resolves to the agent's
// attempt count for the step instead of a telemetry lookup.
const AttemptsMetric = "step_attempts"

const (
	branchPrefix = "BRANCH_TO_"
	hintMarker   = "APPLY_HINT"
	repeatAction = "REPEAT_STEP"
	failAction   = "FAIL_CURRICULUM"
)

// ActionKind classifies a rule action.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionRepeat
	ActionBranch
	ActionHint
	ActionFail
)

func (k ActionKind) String() string {
	switch k {
	case ActionRepeat:
		return "REPEAT_STEP"
	case ActionBranch:
		return "BRANCH_TO"
	case ActionHint:
		return "APPLY_HINT"
	case ActionFail:
		return "FAIL_CURRICULUM"
	default:
		return "UNKNOWN"
	}
}

// Action is a parsed rule action.
type Action struct {
	Kind ActionKind

	// Target is the branch target (order or step name) for ActionBranch,
	// or the hint ID for ActionHint. Empty otherwise.
	Target string
}

// ParseAction classifies a raw action string. Unrecognized actions come
// back with Kind ActionUnknown.
func ParseAction(raw string) Action {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, branchPrefix) && len(raw) > len(branchPrefix):
		return Action{Kind: ActionBranch, Target: raw[len(branchPrefix):]}
	case strings.Contains(raw, hintMarker):
		id := raw[strings.Index(raw, hintMarker)+len(hintMarker):]
		return Action{Kind: ActionHint, Target: strings.TrimPrefix(id, "_")}
	case raw == repeatAction:
		return Action{Kind: ActionRepeat}
	case raw == failAction:
		return Action{Kind: ActionFail}
	default:
		return Action{Kind: ActionUnknown}
	}
}

// Condition is a parsed "<metric> <operator> <value>" expression.
type Condition struct {
	Metric   string
	Operator Operator
	Value    string
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Metric, c.Operator, c.Value)
}

// ParseCondition parses a three-token condition.
func ParseCondition(raw string) (Condition, error) {
	fields := strings.Fields(raw)
	if len(fields) != 3 {
		return Condition{}, fmt.Errorf("condition %q: want 3 tokens, got %d", raw, len(fields))
	}
	op, ok := ParseOperator(fields[1])
	if !ok {
		return Condition{}, fmt.Errorf("condition %q: unknown operator %q", raw, fields[1])
	}
	return Condition{Metric: fields[0], Operator: op, Value: fields[2]}, nil
}

// Rule is an adaptation rule: when Condition holds, Action applies.
// The raw strings are kept verbatim so a curriculum can be re-encoded.
type Rule struct {
	Condition string
	Action    string

	cond    Condition
	condErr error
	act     Action
}

// NewRule parses a condition/action pair. A rule that fails to parse is
// still returned; see Valid.
func NewRule(condition, action string) Rule {
	r := Rule{Condition: condition, Action: action}
	r.cond, r.condErr = ParseCondition(condition)
	r.act = ParseAction(action)
	return r
}

// Valid reports whether the condition parsed.
func (r Rule) Valid() bool { return r.condErr == nil }

// Err returns the condition parse error, if any.
func (r Rule) Err() error { return r.condErr }

// ParsedCondition returns the parsed condition and whether it is usable.
func (r Rule) ParsedCondition() (Condition, bool) {
	return r.cond, r.condErr == nil
}

// ParsedAction returns the parsed action.
func (r Rule) ParsedAction() Action { return r.act }
