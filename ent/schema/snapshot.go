package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ProgressSnapshot captures every agent's progress at a tick, so a run can
// resume without replaying its events.
type ProgressSnapshot struct {
	ent.Schema
}

func (ProgressSnapshot) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (ProgressSnapshot) Fields() []ent.Field {
	return []ent.Field{
		field.String("run_id"),
		field.String("curriculum"),
		field.Int("tick"),
		field.JSON("data", map[string]any{}).
			Comment("Per-agent status, step, attempts and completed steps"),
	}
}

func (ProgressSnapshot) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("curriculum"),
	}
}
