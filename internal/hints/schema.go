package hints

import "github.com/abhisek/scaffold/internal/llm"

// HintSchema is the structured output requested from the model.
var HintSchema = &llm.Schema{
	Name:        "step-hint",
	Description: "A short actionable hint for an agent stuck on a curriculum step",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hint": map[string]any{
				"type":        "string",
				"description": "One to three sentences the agent can act on",
				"minLength":   1,
			},
			"focus_metric": map[string]any{
				"type":        "string",
				"description": "The completion metric the hint targets, or empty",
			},
		},
		"required":             []any{"hint", "focus_metric"},
		"additionalProperties": false,
	},
}
