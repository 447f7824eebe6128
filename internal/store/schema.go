package store

import (
	"context"
	"fmt"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	entschema "github.com/abhisek/scaffold/ent/schema"
)

// Table names shared by the repositories.
const (
	tableCurriculumEvents  = "curriculum_events"
	tableProgressSnapshots = "progress_snapshots"
	tableLLMRequestEvents  = "llm_request_events"
	tableHintEvents        = "hint_events"
)

// entity is a table built from its ent schema declaration, along with the
// field validators that run before every insert.
type entity struct {
	table      *schema.Table
	validators map[string][]any
}

var entities = map[string]*entity{
	tableCurriculumEvents:  fromEnt(tableCurriculumEvents, entschema.CurriculumEvent{}),
	tableProgressSnapshots: fromEnt(tableProgressSnapshots, entschema.ProgressSnapshot{}),
	tableLLMRequestEvents:  fromEnt(tableLLMRequestEvents, entschema.LLMRequestEvent{}),
	tableHintEvents:        fromEnt(tableHintEvents, entschema.HintEvent{}),
}

// tables in creation order.
var tables = []*schema.Table{
	entities[tableCurriculumEvents].table,
	entities[tableProgressSnapshots].table,
	entities[tableLLMRequestEvents].table,
	entities[tableHintEvents].table,
}

// fromEnt lays out a table the way ent's generator does: an auto-increment
// id, the mixin fields, then the entity fields, followed by the declared
// indexes.
func fromEnt(name string, s ent.Interface) *entity {
	t := schema.NewTable(name).
		AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true})
	e := &entity{table: t, validators: make(map[string][]any)}

	for _, d := range fieldDescriptors(s) {
		col := &schema.Column{
			Name:     d.Name,
			Type:     d.Info.Type,
			Size:     int64(d.Size),
			Unique:   d.Unique,
			Nullable: d.Optional || d.Nillable,
		}
		switch v := d.Default.(type) {
		case string, int, int64, bool:
			col.Default = v
		}
		t.AddColumn(col)
		if len(d.Validators) > 0 {
			e.validators[d.Name] = d.Validators
		}
	}

	for _, idx := range indexDescriptors(s) {
		// A unique column already carries its own index.
		if len(idx.Fields) == 1 {
			if c, ok := t.Column(idx.Fields[0]); ok && c.Unique {
				continue
			}
		}
		t.AddIndex(indexName(name, idx), idx.Unique, idx.Fields)
	}
	return e
}

func fieldDescriptors(s ent.Interface) []*field.Descriptor {
	var fields []ent.Field
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
	}
	fields = append(fields, s.Fields()...)

	ds := make([]*field.Descriptor, len(fields))
	for i, f := range fields {
		ds[i] = f.Descriptor()
	}
	return ds
}

func indexDescriptors(s ent.Interface) []*index.Descriptor {
	var idxs []ent.Index
	for _, m := range s.Mixin() {
		idxs = append(idxs, m.Indexes()...)
	}
	idxs = append(idxs, s.Indexes()...)

	ds := make([]*index.Descriptor, len(idxs))
	for i, idx := range idxs {
		ds[i] = idx.Descriptor()
	}
	return ds
}

// indexName prefixes the index with its table; SQLite index names are
// global to the database.
func indexName(table string, idx *index.Descriptor) string {
	if idx.StorageKey != "" {
		return idx.StorageKey
	}
	name := table
	for _, f := range idx.Fields {
		name += "_" + f
	}
	return name
}

// ValidationError reports a value rejected by a field validator declared
// in the ent schema.
type ValidationError struct {
	Table  string
	Column string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s.%s: %v", e.Table, e.Column, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// validate runs the declared validators of table against a row about to
// be inserted. columns and values are parallel.
func validate(table string, columns []string, values []any) error {
	e, ok := entities[table]
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	for i, col := range columns {
		for _, fn := range e.validators[col] {
			if err := runValidator(fn, values[i]); err != nil {
				return &ValidationError{Table: table, Column: col, Err: err}
			}
		}
	}
	return nil
}

func runValidator(fn, v any) error {
	switch fn := fn.(type) {
	case func(string) error:
		if s, ok := v.(string); ok {
			return fn(s)
		}
	case func(int) error:
		if n, ok := v.(int); ok {
			return fn(n)
		}
	case func(int64) error:
		if n, ok := v.(int64); ok {
			return fn(n)
		}
	}
	return nil
}

// migrate creates missing tables, columns and indexes.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
