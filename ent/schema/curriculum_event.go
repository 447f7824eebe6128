package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CurriculumEvent records one orchestrator event for one agent.
type CurriculumEvent struct {
	ent.Schema
}

func (CurriculumEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (CurriculumEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("run_id").NotEmpty(),
		field.String("curriculum").NotEmpty(),
		field.String("agent_id").NotEmpty(),
		field.String("kind").
			Comment("STEP_ATTEMPT_START, STEP_COMPLETED, ADAPTATION_DECISION, ..."),
		field.String("step_name").Default(""),
		field.Int("step_order").Default(0),
		field.Int("attempt").Default(0),
		field.String("decision").
			Default("").
			Comment("Label of the decision behind the event, empty when none"),
		field.Int("tick").Default(0),
		field.String("message").Default(""),
	}
}

func (CurriculumEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id"),
		index.Fields("agent_id"),
		index.Fields("kind"),
	}
}
