package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var snapshotColumns = []string{"id", "sequence", "timestamp", "run_id", "curriculum", "tick", "data"}

type snapshotRow struct {
	ID         int       `sql:"id"`
	Sequence   int64     `sql:"sequence"`
	Timestamp  time.Time `sql:"timestamp"`
	RunID      string    `sql:"run_id"`
	Curriculum string    `sql:"curriculum"`
	Tick       int       `sql:"tick"`
	Data       string    `sql:"data"`
}

// snapshotRepo implements SnapshotRepo with ent's SQL builder.
type snapshotRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	values := []any{snap.RunID, snap.Curriculum, snap.Tick, string(data)}
	if err := validate(tableProgressSnapshots, snapshotColumns[3:], values); err != nil {
		return err
	}

	if snap.Sequence == 0 {
		seq, err := r.seq.Next(ctx)
		if err != nil {
			return err
		}
		snap.Sequence = seq
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	query, args := builder().Insert(tableProgressSnapshots).
		Columns(snapshotColumns[1:]...).
		Values(append([]any{snap.Sequence, snap.Timestamp}, values...)...).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context, curriculum string) (*Snapshot, error) {
	sel := builder().Select(snapshotColumns...).From(entsql.Table(tableProgressSnapshots))
	if curriculum != "" {
		sel.Where(entsql.EQ("curriculum", curriculum))
	}
	sel.OrderBy(entsql.Desc("id")).Limit(1)

	var rows []snapshotRow
	if err := queryRows(ctx, r.drv, sel, &rows); err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	var data SnapshotData
	if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}

	return &Snapshot{
		ID:         row.ID,
		Sequence:   row.Sequence,
		Timestamp:  row.Timestamp,
		RunID:      row.RunID,
		Curriculum: row.Curriculum,
		Tick:       row.Tick,
		Data:       data,
	}, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}

	newest := builder().Select("id").
		From(entsql.Table(tableProgressSnapshots)).
		OrderBy(entsql.Desc("id")).
		Limit(keep)

	query, args := builder().Delete(tableProgressSnapshots).
		Where(entsql.NotIn("id", newest)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
