package orchestrator

import "fmt"

// Status is the lifecycle state of one agent in a run.
type Status int

const (
	NotStarted Status = iota
	InStep
	CompletedStep
	Adapting
	Finished
	Failed
)

var statusNames = [...]string{
	NotStarted:    "NOT_STARTED",
	InStep:        "IN_STEP",
	CompletedStep: "COMPLETED_STEP",
	Adapting:      "ADAPTING",
	Finished:      "FINISHED",
	Failed:        "FAILED",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Terminal reports whether no further transitions can leave s.
func (s Status) Terminal() bool {
	return s == Finished || s == Failed
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// Transition records one status change of an agent.
type Transition struct {
	AgentID   string
	From      Status
	To        Status
	Trigger   string
	StepOrder int
	Tick      int
}

func (t Transition) String() string {
	return fmt.Sprintf("%s: %s -> %s (%s, step %d, tick %d)", t.AgentID, t.From, t.To, t.Trigger, t.StepOrder, t.Tick)
}
