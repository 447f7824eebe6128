package store

import (
	"context"
	"fmt"
	"time"
)

var hintEventColumns = []string{
	"id", "sequence", "timestamp", "run_id", "agent_id", "step_order", "hint_id", "source", "hint_text",
}

type hintEventRow struct {
	ID        int       `sql:"id"`
	Sequence  int64     `sql:"sequence"`
	Timestamp time.Time `sql:"timestamp"`
	RunID     string    `sql:"run_id"`
	AgentID   string    `sql:"agent_id"`
	StepOrder int       `sql:"step_order"`
	HintID    string    `sql:"hint_id"`
	Source    string    `sql:"source"`
	Text      string    `sql:"hint_text"`
}

func (r *eventRepo) AppendHintEvent(ctx context.Context, data HintEventData) error {
	err := r.insert(ctx, tableHintEvents, time.Time{},
		hintEventColumns[3:],
		[]any{data.RunID, data.AgentID, data.StepOrder, data.HintID, data.Source, data.Text},
	)
	if err != nil {
		return fmt.Errorf("save hint event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryHintEvents(ctx context.Context, opts QueryOpts) ([]HintEvent, error) {
	sel := selectEvents(tableHintEvents, hintEventColumns, opts, "run_id", "agent_id")

	var rows []hintEventRow
	if err := queryRows(ctx, r.drv, sel, &rows); err != nil {
		return nil, fmt.Errorf("query hint events: %w", err)
	}

	out := make([]HintEvent, len(rows))
	for i, row := range rows {
		out[i] = HintEvent{
			ID:        row.ID,
			Sequence:  row.Sequence,
			Timestamp: row.Timestamp,
			HintEventData: HintEventData{
				RunID:     row.RunID,
				AgentID:   row.AgentID,
				StepOrder: row.StepOrder,
				HintID:    row.HintID,
				Source:    row.Source,
				Text:      row.Text,
			},
		}
	}
	return out, nil
}
