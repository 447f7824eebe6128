package adaptation

import "fmt"

// Kind is the outcome category of evaluating a step.
type Kind int

const (
	Proceed Kind = iota
	Repeat
	Branch
	Hint
	Fail
)

func (k Kind) String() string {
	switch k {
	case Proceed:
		return "PROCEED"
	case Repeat:
		return "REPEAT_STEP"
	case Branch:
		return "BRANCH_TO"
	case Hint:
		return "APPLY_HINT"
	case Fail:
		return "FAIL_CURRICULUM"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Decision tells the orchestrator how to continue after a step attempt.
type Decision struct {
	Kind Kind

	// Target is the branch target for Branch.
	Target string

	// HintID is the requested hint for Hint. It may be empty.
	HintID string

	// Rule is the index of the adaptation rule that produced the decision,
	// or -1 when no rule matched.
	Rule int
}

// ProceedDecision is the decision used when a step completes or no rule applies.
var ProceedDecision = Decision{Kind: Proceed, Rule: -1}

func (d Decision) String() string {
	switch d.Kind {
	case Branch:
		return fmt.Sprintf("BRANCH_TO(%s)", d.Target)
	case Hint:
		return fmt.Sprintf("APPLY_HINT(%s)", d.HintID)
	default:
		return d.Kind.String()
	}
}
