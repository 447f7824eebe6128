package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// In-memory databases report journal_mode "memory", so WAL is
		// checked in TestOpenFileDatabase.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scaffold.db")
	if err := EnsureDir(path); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{
		tableCurriculumEvents, tableProgressSnapshots, tableLLMRequestEvents, tableHintEvents, "global_sequence",
	} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestDefaultDBPathFromEnv(t *testing.T) {
	want := filepath.Join(t.TempDir(), "sub", "x.db")
	t.Setenv("SCAFFOLD_DB", want)
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestDefaultDBPathXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCAFFOLD_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	want := filepath.Join(dir, "scaffold", "scaffold.db")
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sc, err := newSequenceCounter(s.DB())
	if err != nil {
		t.Fatalf("new sequence counter: %v", err)
	}

	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if want := int64(i + 1); seq != want {
			t.Errorf("seq[%d] = %d, want %d", i, seq, want)
		}
	}
}

func TestCurriculumEventsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []CurriculumEventData{
		{RunID: "r1", Curriculum: "basics", AgentID: "a1", Kind: "STEP_ATTEMPT_START", StepName: "intro", StepOrder: 1, Attempt: 1, Tick: 1, Timestamp: ts},
		{RunID: "r1", Curriculum: "basics", AgentID: "a2", Kind: "STEP_ATTEMPT_START", StepName: "intro", StepOrder: 1, Attempt: 1, Tick: 1, Timestamp: ts},
		{RunID: "r1", Curriculum: "basics", AgentID: "a1", Kind: "ADAPTATION_DECISION", StepName: "intro", StepOrder: 1, Attempt: 1, Decision: "REPEAT_STEP", Tick: 1, Timestamp: ts.Add(time.Second)},
		{RunID: "r2", Curriculum: "basics", AgentID: "a1", Kind: "STEP_COMPLETED", StepName: "intro", StepOrder: 1, Attempt: 1, Tick: 1},
	}
	for i, e := range events {
		if err := repo.AppendCurriculumEvent(ctx, e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := repo.QueryCurriculumEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	if all[0].Sequence <= all[1].Sequence {
		t.Errorf("events not newest first: %d then %d", all[0].Sequence, all[1].Sequence)
	}

	run1a1, err := repo.QueryCurriculumEvents(ctx, QueryOpts{RunID: "r1", AgentID: "a1"})
	if err != nil {
		t.Fatalf("filtered query: %v", err)
	}
	if len(run1a1) != 2 {
		t.Fatalf("filtered len = %d, want 2", len(run1a1))
	}
	if run1a1[0].Decision != "REPEAT_STEP" {
		t.Errorf("decision = %q, want REPEAT_STEP", run1a1[0].Decision)
	}
	if !run1a1[1].Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", run1a1[1].Timestamp, ts)
	}

	limited, err := repo.QueryCurriculumEvents(ctx, QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("limited query: %v", err)
	}
	if len(limited) != 1 || limited[0].RunID != "r2" {
		t.Errorf("limited = %+v, want the r2 event", limited)
	}

	after, err := repo.QueryCurriculumEvents(ctx, QueryOpts{After: all[1].Sequence})
	if err != nil {
		t.Fatalf("after query: %v", err)
	}
	if len(after) != 1 {
		t.Errorf("after len = %d, want 1", len(after))
	}
}

func TestLLMEventsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	err := repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "mock", Model: "m1", Purpose: "hint",
		InputTokens: 10, OutputTokens: 20, LatencyMs: 150, Success: true,
		RequestBody: `{"q":1}`, ResponseBody: `{"a":2}`,
	})
	if err != nil {
		t.Fatalf("append ok: %v", err)
	}
	err = repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "mock", Model: "m1", Purpose: "hint", ErrorMessage: "boom",
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Success || events[0].ErrorMessage != "boom" {
		t.Errorf("newest = %+v, want the failed call", events[0].LLMRequestEventData)
	}

	got, err := repo.GetLLMEvent(ctx, events[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected event")
	}
	if !got.Success || got.InputTokens != 10 || got.ResponseBody != `{"a":2}` {
		t.Errorf("got = %+v", got.LLMRequestEventData)
	}

	missing, err := repo.GetLLMEvent(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing id, got %+v", missing)
	}
}

func TestHintEventsShareSequence(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	if err := repo.AppendCurriculumEvent(ctx, CurriculumEventData{RunID: "r", Curriculum: "c", AgentID: "a", Kind: "ADAPTATION_DECISION"}); err != nil {
		t.Fatalf("append step event: %v", err)
	}
	if err := repo.AppendHintEvent(ctx, HintEventData{RunID: "r", AgentID: "a", StepOrder: 2, HintID: "h1", Source: "static", Text: "look left"}); err != nil {
		t.Fatalf("append hint: %v", err)
	}

	steps, err := repo.QueryCurriculumEvents(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query steps: %v", err)
	}
	hints, err := repo.QueryHintEvents(ctx, QueryOpts{AgentID: "a"})
	if err != nil {
		t.Fatalf("query hints: %v", err)
	}
	if len(hints) != 1 {
		t.Fatalf("hints = %d, want 1", len(hints))
	}
	if hints[0].Sequence <= steps[0].Sequence {
		t.Errorf("hint sequence %d should follow step sequence %d", hints[0].Sequence, steps[0].Sequence)
	}
	if hints[0].Text != "look left" || hints[0].Source != "static" {
		t.Errorf("hint = %+v", hints[0].HintEventData)
	}
}

func TestSnapshotSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	snap, err := repo.Latest(ctx, "")
	if err != nil {
		t.Fatalf("latest (empty): %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot when none exist")
	}

	now := time.Now().UTC().Truncate(time.Second)
	err = repo.Save(ctx, &Snapshot{
		Sequence:   42,
		Timestamp:  now,
		RunID:      "r1",
		Curriculum: "basics",
		Tick:       3,
		Data: SnapshotData{
			Version: 1,
			Order:   []string{"a1"},
			Agents: map[string]AgentSnapshot{
				"a1": {Status: "IN_STEP", CurrentStepOrder: 2, Completed: []int{1}, Attempts: map[int]int{1: 1, 2: 2}},
			},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	snap, err = repo.Latest(ctx, "basics")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snap.Sequence != 42 || snap.Tick != 3 || snap.RunID != "r1" {
		t.Errorf("snapshot = %+v", snap)
	}
	a1 := snap.Data.Agents["a1"]
	if a1.CurrentStepOrder != 2 || a1.Attempts[2] != 2 || len(a1.Completed) != 1 {
		t.Errorf("agent snapshot = %+v", a1)
	}

	other, err := repo.Latest(ctx, "advanced")
	if err != nil {
		t.Fatalf("latest other: %v", err)
	}
	if other != nil {
		t.Errorf("expected nil for unknown curriculum, got %+v", other)
	}
}

func TestSnapshotSaveAssignsSequence(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	snap := &Snapshot{Curriculum: "basics", Data: SnapshotData{Version: 1}}
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if snap.Sequence == 0 {
		t.Error("expected sequence to be assigned")
	}
	if snap.Timestamp.IsZero() {
		t.Error("expected timestamp to be assigned")
	}
}

func TestSnapshotLatestReturnsNewest(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		err := repo.Save(ctx, &Snapshot{
			Sequence:   int64(i + 1),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Curriculum: "basics",
			Data:       SnapshotData{Version: i + 1},
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	snap, err := repo.Latest(ctx, "")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Sequence != 3 {
		t.Errorf("sequence = %d, want 3", snap.Sequence)
	}
	if snap.Data.Version != 3 {
		t.Errorf("data.version = %d, want 3", snap.Data.Version)
	}
}

func TestSnapshotPrune(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if err := repo.Save(ctx, &Snapshot{Sequence: int64(i + 1), Data: SnapshotData{Version: 1}}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	if err := repo.Prune(ctx, 5); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n := countRows(t, s, tableProgressSnapshots); n != 5 {
		t.Errorf("remaining snapshots = %d, want 5", n)
	}

	snap, err := repo.Latest(ctx, "")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.Sequence != 7 {
		t.Errorf("latest sequence = %d, want 7", snap.Sequence)
	}
}

func TestSnapshotPruneWithFewerThanKeep(t *testing.T) {
	s := openTestStore(t)
	repo := s.SnapshotRepo()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := repo.Save(ctx, &Snapshot{Sequence: int64(i + 1), Data: SnapshotData{Version: 1}}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	if err := repo.Prune(ctx, 5); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n := countRows(t, s, tableProgressSnapshots); n != 2 {
		t.Errorf("remaining snapshots = %d, want 2", n)
	}
}
