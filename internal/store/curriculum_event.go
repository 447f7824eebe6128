package store

import (
	"context"
	"fmt"
	"time"
)

var curriculumEventColumns = []string{
	"id", "sequence", "timestamp", "run_id", "curriculum", "agent_id", "kind",
	"step_name", "step_order", "attempt", "decision", "tick", "message",
}

type curriculumEventRow struct {
	ID         int       `sql:"id"`
	Sequence   int64     `sql:"sequence"`
	Timestamp  time.Time `sql:"timestamp"`
	RunID      string    `sql:"run_id"`
	Curriculum string    `sql:"curriculum"`
	AgentID    string    `sql:"agent_id"`
	Kind       string    `sql:"kind"`
	StepName   string    `sql:"step_name"`
	StepOrder  int       `sql:"step_order"`
	Attempt    int       `sql:"attempt"`
	Decision   string    `sql:"decision"`
	Tick       int       `sql:"tick"`
	Message    string    `sql:"message"`
}

func (r *eventRepo) AppendCurriculumEvent(ctx context.Context, data CurriculumEventData) error {
	err := r.insert(ctx, tableCurriculumEvents, data.Timestamp,
		curriculumEventColumns[3:],
		[]any{
			data.RunID, data.Curriculum, data.AgentID, data.Kind,
			data.StepName, data.StepOrder, data.Attempt, data.Decision, data.Tick, data.Message,
		},
	)
	if err != nil {
		return fmt.Errorf("save curriculum event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryCurriculumEvents(ctx context.Context, opts QueryOpts) ([]CurriculumEvent, error) {
	sel := selectEvents(tableCurriculumEvents, curriculumEventColumns, opts, "run_id", "agent_id")

	var rows []curriculumEventRow
	if err := queryRows(ctx, r.drv, sel, &rows); err != nil {
		return nil, fmt.Errorf("query curriculum events: %w", err)
	}

	out := make([]CurriculumEvent, len(rows))
	for i, row := range rows {
		out[i] = CurriculumEvent{
			ID:       row.ID,
			Sequence: row.Sequence,
			CurriculumEventData: CurriculumEventData{
				RunID:      row.RunID,
				Curriculum: row.Curriculum,
				AgentID:    row.AgentID,
				Kind:       row.Kind,
				StepName:   row.StepName,
				StepOrder:  row.StepOrder,
				Attempt:    row.Attempt,
				Decision:   row.Decision,
				Tick:       row.Tick,
				Message:    row.Message,
				Timestamp:  row.Timestamp,
			},
		}
	}
	return out, nil
}
