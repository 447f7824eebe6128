package telemetry

import (
	"context"
	"testing"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, _ := m.Metric(ctx, "a", "score"); ok {
		t.Fatal("expected missing metric")
	}

	m.Set("a", "score", 42)
	m.SetAll("a", map[string]any{"done": true, "score": 50})

	v, ok, err := m.Metric(ctx, "a", "score")
	if err != nil || !ok || v != 50 {
		t.Errorf("score = (%v, %v, %v), want (50, true, nil)", v, ok, err)
	}
	if _, ok, _ := m.Metric(ctx, "b", "score"); ok {
		t.Error("metrics leaked across agents")
	}

	m.Delete("a", "score")
	if _, ok, _ := m.Metric(ctx, "a", "score"); ok {
		t.Error("expected score deleted")
	}

	all := m.All("a")
	all["done"] = false
	if v, _, _ := m.Metric(ctx, "a", "done"); v != true {
		t.Error("All must return a copy")
	}
}
