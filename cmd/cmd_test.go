package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abhisek/scaffold/internal/config"
	"github.com/abhisek/scaffold/internal/curriculum"
	"github.com/abhisek/scaffold/internal/store"
)

var (
	scenarioFile   = filepath.Join("..", "internal", "sim", "testdata", "scenario.yaml")
	curriculumFile = filepath.Join("..", "internal", "sim", "testdata", "navigation.yaml")
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "scaffold.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunScenario(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	var out bytes.Buffer

	err := runScenario(ctx, config.Default(), st, zap.NewNop(), runOptions{scenario: scenarioFile}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "of navigation-basics: 4 ticks")
	assert.Contains(t, out.String(), "finished 2  failed 1  active 0")
	assert.Regexp(t, `stuck\s+FAILED`, out.String())

	events, err := st.EventRepo().QueryCurriculumEvents(ctx, store.QueryOpts{AgentID: "learner"})
	require.NoError(t, err)
	assert.NotEmpty(t, events)

	hintEvents, err := st.EventRepo().QueryHintEvents(ctx, store.QueryOpts{AgentID: "learner"})
	require.NoError(t, err)
	require.Len(t, hintEvents, 1)
	assert.Equal(t, "wall", hintEvents[0].HintID)

	snap, err := st.SnapshotRepo().Latest(ctx, "navigation-basics")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 4, snap.Tick)
}

func TestRunScenarioTickBudget(t *testing.T) {
	var out bytes.Buffer
	err := runScenario(context.Background(), config.Default(), openTestStore(t), zap.NewNop(),
		runOptions{scenario: scenarioFile, maxTicks: 1}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), ": 1 ticks")
	assert.Contains(t, out.String(), "tick budget exhausted")
}

func TestRunScenarioResume(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	var first bytes.Buffer
	require.NoError(t, runScenario(ctx, config.Default(), st, zap.NewNop(),
		runOptions{scenario: scenarioFile, maxTicks: 2}, &first))
	assert.Contains(t, first.String(), "tick budget exhausted")

	var second bytes.Buffer
	require.NoError(t, runScenario(ctx, config.Default(), st, zap.NewNop(),
		runOptions{scenario: scenarioFile, resume: true}, &second))
	assert.Contains(t, second.String(), "active 0")
	assert.NotContains(t, second.String(), "tick budget exhausted")
}

func TestRunScenarioMissingFile(t *testing.T) {
	err := runScenario(context.Background(), config.Default(), openTestStore(t), zap.NewNop(),
		runOptions{scenario: filepath.Join(t.TempDir(), "nope.yaml")}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "read scenario")
}

func TestValidateFile(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, validateFile(&out, curriculumFile, ""))
	assert.Contains(t, out.String(), "ok (navigation-basics, 2 steps, version v1.0.0)")

	out.Reset()
	require.NoError(t, validateFile(&out, curriculumFile, curriculum.FormatJSON))
	c, _, err := curriculum.Parse(out.Bytes(), curriculum.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "navigation-basics", c.Name())
	assert.Equal(t, 2, c.Len())
}

func TestValidateFileRejectsBrokenCurriculum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: broken\nsteps: []\n"), 0o600))
	assert.Error(t, validateFile(&bytes.Buffer{}, path, ""))
}

func TestWatchFileStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var out bytes.Buffer
	require.NoError(t, watchFile(ctx, &out, curriculumFile, ""))
	assert.Contains(t, out.String(), "navigation-basics")
}

func TestPrintProgress(t *testing.T) {
	var out bytes.Buffer
	printProgress(&out, nil)
	assert.Contains(t, out.String(), "No snapshots found.")

	out.Reset()
	printProgress(&out, &store.Snapshot{
		RunID:      "r1",
		Curriculum: "nav",
		Tick:       3,
		Data: store.SnapshotData{
			Order: []string{"b", "a"},
			Agents: map[string]store.AgentSnapshot{
				"a": {Status: "FINISHED", Completed: []int{1, 2}, Attempts: map[int]int{2: 1, 1: 3}, Ended: true},
				"b": {Status: "IN_STEP", CurrentStepOrder: 2, Completed: []int{1}, Attempts: map[int]int{1: 1, 2: 1}},
				"z": {Status: "NOT_STARTED"},
			},
		},
	})
	text := out.String()
	assert.Contains(t, text, "1:3 2:1")
	assert.Contains(t, text, "1,2")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("b   ")), bytes.Index(out.Bytes(), []byte("a   ")))
	assert.Contains(t, text, "z")
}

func TestSnapshotOrder(t *testing.T) {
	d := store.SnapshotData{
		Order:  []string{"c", "gone", "a"},
		Agents: map[string]store.AgentSnapshot{"a": {}, "b": {}, "c": {}, "d": {}},
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, snapshotOrder(d))
}

func TestPrintEvents(t *testing.T) {
	var out bytes.Buffer
	printEvents(&out, nil)
	assert.Contains(t, out.String(), "No events found.")

	out.Reset()
	printEvents(&out, []store.CurriculumEvent{{
		Sequence: 7,
		CurriculumEventData: store.CurriculumEventData{
			AgentID:  "learner",
			Kind:     "ADAPTATION_DECISION",
			StepName: "find-goal",
			Attempt:  2,
			Decision: "REPEAT_STEP",
			Message:  "step_attempts >= 2",
		},
	}})
	assert.Contains(t, out.String(), "REPEAT_STEP step_attempts >= 2")
}

func TestResolveDBPath(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(dir, "cfg", "scaffold.db")

	c := &cobra.Command{}
	c.Flags().String("db", "", "")

	p, err := resolveDBPath(c, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Store.Path, p)
	assert.DirExists(t, filepath.Join(dir, "cfg"))

	flagPath := filepath.Join(dir, "flag", "x.db")
	require.NoError(t, c.Flags().Set("db", flagPath))
	p, err = resolveDBPath(c, cfg)
	require.NoError(t, err)
	assert.Equal(t, flagPath, p)
}

func TestNewLoggerQuiet(t *testing.T) {
	l, err := newLogger(config.Default(), true)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.ErrorLevel))
}
