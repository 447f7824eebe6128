package curriculum

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "schema://curriculum.json"

// documentSchema describes the structural shape of a curriculum document.
// Semantic checks (unique orders, operators) happen after decoding.
var documentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":         map[string]any{"type": "string", "minLength": 1},
		"description":  map[string]any{"type": "string"},
		"target_stage": map[string]any{"type": "string"},
		"author":       map[string]any{"type": "string"},
		"version":      map[string]any{"type": "string"},
		"steps": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items":    stepSchema,
		},
	},
	"required": []any{"name", "steps"},
}

var stepSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":             map[string]any{"type": "string", "minLength": 1},
		"order":            map[string]any{"type": "integer"},
		"description":      map[string]any{"type": "string"},
		"prompt_reference": map[string]any{"type": "string"},
		"completion_criteria": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"metric":   map[string]any{"type": "string", "minLength": 1},
					"operator": map[string]any{"type": "string"},
				},
				"required": []any{"metric", "operator", "value"},
			},
		},
		// Individual entries are checked during decoding so that one bad
		// rule does not reject the whole document.
		"adaptation_rules":             map[string]any{"type": "array"},
		"environment_config_overrides": map[string]any{"type": "object"},
		"agent_config_overrides":       map[string]any{"type": "object"},
		"max_interactions":             map[string]any{"type": "integer", "minimum": 1},
		"hints": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		},
	},
	"required": []any{"name", "order", "prompt_reference"},
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// compiledSchema compiles documentSchema on first use.
func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		raw, err := json.Marshal(documentSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal curriculum schema: %w", err)
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			compileErr = fmt.Errorf("parse curriculum schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}
