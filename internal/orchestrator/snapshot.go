package orchestrator

import (
	"context"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/abhisek/scaffold/internal/progress"
	"github.com/abhisek/scaffold/internal/store"
)

const snapshotVersion = 1

// Snapshot captures the statuses and progress of every registered agent.
func (o *Orchestrator) Snapshot() store.SnapshotData {
	prog := o.tracker.Snapshot()

	o.mu.Lock()
	defer o.mu.Unlock()

	data := store.SnapshotData{
		Version: snapshotVersion,
		Agents:  make(map[string]store.AgentSnapshot, len(o.agents)),
		Order:   append([]string(nil), o.order...),
	}
	for id, a := range o.agents {
		p := prog[id]
		data.Agents[id] = store.AgentSnapshot{
			Status:           a.status.String(),
			CurrentStepOrder: p.CurrentStepOrder,
			Completed:        p.CompletedOrders(),
			Attempts:         maps.Clone(p.Attempts),
			Ended:            p.Ended,
		}
	}
	return data
}

// Resume restores registered agents from snap. Agents in the snapshot that
// are not registered are ignored; registered agents missing from it start
// fresh. The tick counter continues from the snapshot.
func (o *Orchestrator) Resume(snap *store.Snapshot) error {
	if snap == nil {
		return nil
	}
	if snap.Curriculum != o.curriculum.Name() {
		return fmt.Errorf("resume: snapshot is for curriculum %q, not %q", snap.Curriculum, o.curriculum.Name())
	}
	if snap.Data.Version != snapshotVersion {
		return fmt.Errorf("resume: unsupported snapshot version %d", snap.Data.Version)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return fmt.Errorf("resume: %w", ErrRunning)
	}

	restored := make(map[string]progress.AgentProgress)
	statuses := make(map[string]Status)
	for id, a := range snap.Data.Agents {
		if _, ok := o.agents[id]; !ok {
			continue
		}
		st, err := ParseStatus(a.Status)
		if err != nil {
			return fmt.Errorf("resume %q: %w", id, err)
		}
		p := progress.AgentProgress{
			CurrentStepOrder: a.CurrentStepOrder,
			Completed:        make(map[int]bool, len(a.Completed)),
			Attempts:         maps.Clone(a.Attempts),
			Ended:            a.Ended,
		}
		for _, order := range a.Completed {
			p.Completed[order] = true
		}
		restored[id] = p
		statuses[id] = st
	}

	for id := range o.agents {
		if _, ok := restored[id]; !ok {
			restored[id] = progress.AgentProgress{CurrentStepOrder: progress.NotStarted}
			statuses[id] = NotStarted
		}
	}

	if err := o.tracker.Restore(restored); err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	for id, st := range statuses {
		// Mid-decision states resume as a fresh attempt of the current step.
		if st == CompletedStep || st == Adapting {
			st = InStep
		}
		o.agents[id].status = st
	}
	o.tick = snap.Tick

	o.logger.Info("resumed from snapshot",
		zap.Int("snapshot_id", snap.ID),
		zap.String("from_run", snap.RunID),
		zap.Int("tick", snap.Tick),
		zap.Int("agents", len(statuses)))
	return nil
}

// saveSnapshot persists the current state and prunes old snapshots.
// Failures are logged; they never stop the run.
func (o *Orchestrator) saveSnapshot(ctx context.Context) {
	if o.opts.Snapshots == nil {
		return
	}

	snap := &store.Snapshot{
		RunID:      o.opts.RunID,
		Curriculum: o.curriculum.Name(),
		Tick:       o.Ticks(),
		Data:       o.Snapshot(),
	}
	if err := o.opts.Snapshots.Save(ctx, snap); err != nil {
		o.logger.Warn("save snapshot", zap.Error(err))
		return
	}
	if o.opts.SnapshotKeep > 0 {
		if err := o.opts.Snapshots.Prune(ctx, o.opts.SnapshotKeep); err != nil {
			o.logger.Warn("prune snapshots", zap.Error(err))
		}
	}
	o.logger.Debug("snapshot saved", zap.Int("tick", snap.Tick))
}
