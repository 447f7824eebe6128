package llm

import (
	"testing"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-2.0-flash", "gemini-2.0-flash"},
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, geminiModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"hint":       map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number"},
			"tone":       map[string]any{"type": "string", "enum": []any{"direct", "socratic"}},
			"steps": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "integer"},
			},
		},
		"required": []any{"hint"},
	}

	schema := buildGeminiSchema(def)

	if schema.Type != "OBJECT" {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	if len(schema.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(schema.Properties))
	}
	if schema.Properties["hint"].Type != "STRING" {
		t.Fatalf("expected STRING for hint, got %s", schema.Properties["hint"].Type)
	}
	if schema.Properties["confidence"].Type != "NUMBER" {
		t.Fatalf("expected NUMBER for confidence, got %s", schema.Properties["confidence"].Type)
	}
	if len(schema.Properties["tone"].Enum) != 2 {
		t.Fatalf("expected 2 enum values, got %d", len(schema.Properties["tone"].Enum))
	}
	if schema.Properties["steps"].Items.Type != "INTEGER" {
		t.Fatalf("expected INTEGER for steps items, got %s", schema.Properties["steps"].Items.Type)
	}
	if len(schema.Required) != 1 {
		t.Fatalf("expected 1 required field, got %d", len(schema.Required))
	}
}

func TestBuildGeminiSchemaStringLists(t *testing.T) {
	schema := buildGeminiSchema(map[string]any{
		"type":     "object",
		"required": []string{"hint", "focus_metric"},
		"properties": map[string]any{
			"when": map[string]any{"type": "date"},
		},
	})
	if len(schema.Required) != 2 {
		t.Fatalf("expected 2 required fields, got %v", schema.Required)
	}
	if schema.Properties["when"].Type != "STRING" {
		t.Fatalf("unknown types should map to STRING, got %s", schema.Properties["when"].Type)
	}
}
