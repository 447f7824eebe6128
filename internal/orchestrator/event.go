package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abhisek/scaffold/internal/store"
)

// EventKind names an orchestrator event.
type EventKind string

const (
	EventStepAttemptStart     EventKind = "STEP_ATTEMPT_START"
	EventStepCompleted        EventKind = "STEP_COMPLETED"
	EventAdaptationDecision   EventKind = "ADAPTATION_DECISION"
	EventCurriculumFinished   EventKind = "CURRICULUM_FINISHED"
	EventCurriculumFailed     EventKind = "CURRICULUM_FAILED"
	EventConfigurationWarning EventKind = "CONFIGURATION_WARNING"
	EventHintApplied          EventKind = "HINT_APPLIED"
)

// Event is one observable step of a run.
type Event struct {
	RunID      string
	Curriculum string
	AgentID    string
	Kind       EventKind
	StepName   string
	StepOrder  int
	Attempt    int
	Decision   string
	Tick       int
	Timestamp  time.Time
	Message    string
}

// Sink receives events in emission order. Emit is called from the
// orchestrator loop and, for aborts, from the aborting goroutine.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Emit(ctx context.Context, e Event) error { return f(ctx, e) }

// MultiSink fans events out to every sink. All sinks see every event;
// their errors are joined.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events as structured log lines.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("events")}
}

func (s *LogSink) Emit(_ context.Context, e Event) error {
	level := zapcore.InfoLevel
	switch e.Kind {
	case EventCurriculumFailed, EventConfigurationWarning:
		level = zapcore.WarnLevel
	case EventStepAttemptStart:
		level = zapcore.DebugLevel
	}

	fields := []zap.Field{
		zap.String("run_id", e.RunID),
		zap.String("agent_id", e.AgentID),
		zap.String("step", e.StepName),
		zap.Int("step_order", e.StepOrder),
		zap.Int("attempt", e.Attempt),
		zap.Int("tick", e.Tick),
	}
	if e.Decision != "" {
		fields = append(fields, zap.String("decision", e.Decision))
	}
	if e.Message != "" {
		fields = append(fields, zap.String("message", e.Message))
	}

	s.logger.Log(level, string(e.Kind), fields...)
	return nil
}

// StoreSink persists events as curriculum events.
type StoreSink struct {
	repo store.EventRepo
}

// NewStoreSink creates a StoreSink writing to repo.
func NewStoreSink(repo store.EventRepo) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Emit(ctx context.Context, e Event) error {
	return s.repo.AppendCurriculumEvent(ctx, store.CurriculumEventData{
		RunID:      e.RunID,
		Curriculum: e.Curriculum,
		AgentID:    e.AgentID,
		Kind:       string(e.Kind),
		StepName:   e.StepName,
		StepOrder:  e.StepOrder,
		Attempt:    e.Attempt,
		Decision:   e.Decision,
		Tick:       e.Tick,
		Message:    e.Message,
		Timestamp:  e.Timestamp,
	})
}
