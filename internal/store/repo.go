package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	RunID   string    // exact match when set
	AgentID string    // exact match when set
}

// CurriculumEventData captures one orchestrator event.
type CurriculumEventData struct {
	RunID      string
	Curriculum string
	AgentID    string
	Kind       string
	StepName   string
	StepOrder  int
	Attempt    int
	Decision   string
	Tick       int
	Message    string
	Timestamp  time.Time // zero means now
}

// CurriculumEvent is a stored orchestrator event.
type CurriculumEvent struct {
	ID       int
	Sequence int64
	CurriculumEventData
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// HintEventData records a hint delivered to an agent.
type HintEventData struct {
	RunID     string
	AgentID   string
	StepOrder int
	HintID    string
	Source    string
	Text      string
}

// HintEvent is a stored hint event.
type HintEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	HintEventData
}

// EventRepo provides append and query access to domain events. All event
// types share one global sequence.
type EventRepo interface {
	AppendCurriculumEvent(ctx context.Context, data CurriculumEventData) error
	QueryCurriculumEvents(ctx context.Context, opts QueryOpts) ([]CurriculumEvent, error)

	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns the event with the given ID, or nil if none exists.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	AppendHintEvent(ctx context.Context, data HintEventData) error
	QueryHintEvents(ctx context.Context, opts QueryOpts) ([]HintEvent, error)
}

// AgentSnapshot is one agent's persisted progress.
type AgentSnapshot struct {
	Status           string      `json:"status"`
	CurrentStepOrder int         `json:"current_step_order"`
	Completed        []int       `json:"completed"`
	Attempts         map[int]int `json:"attempts"`
	Ended            bool        `json:"ended"`
}

// SnapshotData captures the full orchestrator state at a point in time.
type SnapshotData struct {
	Version int                      `json:"version"`
	Agents  map[string]AgentSnapshot `json:"agents"`
	Order   []string                 `json:"order"` // registration order
}

// Snapshot represents a point-in-time capture of a run.
type Snapshot struct {
	ID         int
	Sequence   int64 // assigned from the global sequence when zero
	Timestamp  time.Time
	RunID      string
	Curriculum string
	Tick       int
	Data       SnapshotData
}

// SnapshotRepo manages progress snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	// A non-empty curriculum restricts the search to that curriculum.
	Latest(ctx context.Context, curriculum string) (*Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}
