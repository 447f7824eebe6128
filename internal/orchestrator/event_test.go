package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/abhisek/scaffold/internal/logging"
	"github.com/abhisek/scaffold/internal/store"
	"github.com/abhisek/scaffold/internal/telemetry"
)

func TestMultiSinkJoinsErrors(t *testing.T) {
	var seen int
	counting := SinkFunc(func(context.Context, Event) error { seen++; return nil })
	failing := SinkFunc(func(context.Context, Event) error { return errors.New("disk full") })

	err := MultiSink{failing, counting, failing}.Emit(context.Background(), Event{Kind: EventStepCompleted})
	require.Error(t, err)
	assert.Equal(t, 1, seen)
	assert.Equal(t, 2, strings.Count(err.Error(), "disk full"))

	assert.NoError(t, MultiSink{}.Emit(context.Background(), Event{}))
}

func TestLogSinkLevels(t *testing.T) {
	obs := logging.NewObserved(zapcore.DebugLevel)
	s := NewLogSink(obs.Logger)
	ctx := context.Background()

	require.NoError(t, s.Emit(ctx, Event{Kind: EventStepAttemptStart, AgentID: "a"}))
	require.NoError(t, s.Emit(ctx, Event{Kind: EventStepCompleted, AgentID: "a"}))
	require.NoError(t, s.Emit(ctx, Event{Kind: EventCurriculumFailed, AgentID: "a", Message: "boom"}))
	require.NoError(t, s.Emit(ctx, Event{Kind: EventConfigurationWarning, AgentID: "a"}))

	obs.AssertLogged(t, zapcore.DebugLevel, string(EventStepAttemptStart))
	obs.AssertLogged(t, zapcore.InfoLevel, string(EventStepCompleted))
	obs.AssertLogged(t, zapcore.WarnLevel, string(EventCurriculumFailed))
	obs.AssertLogged(t, zapcore.WarnLevel, string(EventConfigurationWarning))

	entries := obs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "boom", entries[2].ContextMap()["message"])
}

func TestSinkErrorsDoNotStopRun(t *testing.T) {
	mem := telemetry.NewMemory()
	mem.Set("a", "score", 1)
	obs := logging.NewObserved(zapcore.WarnLevel)
	broken := SinkFunc(func(context.Context, Event) error { return errors.New("closed") })

	o := New(threeSteps(t), new(mockEnvironment).idle(), mem, Options{Logger: obs.Logger, Sinks: []Sink{broken}})
	require.NoError(t, o.Register("a", nil))

	sum, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Finished)
	obs.AssertLogged(t, zapcore.WarnLevel, "event sink failed")
}

func TestStoreSinkPersistsRun(t *testing.T) {
	s, err := store.Open("file:orchestrator_store_sink?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mem := telemetry.NewMemory()
	mem.Set("a", "score", 1)
	repo := s.EventRepo()

	o := New(threeSteps(t), new(mockEnvironment).idle(), mem, Options{RunID: "r1", Sinks: []Sink{NewStoreSink(repo)}})
	require.NoError(t, o.Register("a", nil))
	_, err = o.Run(context.Background())
	require.NoError(t, err)

	events, err := repo.QueryCurriculumEvents(context.Background(), store.QueryOpts{RunID: "r1"})
	require.NoError(t, err)
	require.Len(t, events, 7)

	// Newest first.
	assert.Equal(t, string(EventCurriculumFinished), events[0].Kind)
	assert.Equal(t, "three", events[0].StepName)
	assert.Equal(t, "test-curriculum", events[0].Curriculum)
	assert.Equal(t, string(EventStepAttemptStart), events[6].Kind)
	assert.Greater(t, events[0].Sequence, events[6].Sequence)
}
