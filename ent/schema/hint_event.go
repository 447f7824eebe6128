package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// HintEvent records a hint resolved for an agent.
type HintEvent struct {
	ent.Schema
}

func (HintEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (HintEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("run_id"),
		field.String("agent_id").NotEmpty(),
		field.Int("step_order"),
		field.String("hint_id").Default(""),
		field.String("source").
			Comment("static, llm or fallback"),
		field.Text("hint_text"),
	}
}

func (HintEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id"),
		index.Fields("agent_id"),
	}
}
