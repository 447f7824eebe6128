package curriculum

import "testing"

func TestParseAction(t *testing.T) {
	tests := []struct {
		raw        string
		wantKind   ActionKind
		wantTarget string
	}{
		{"BRANCH_TO_1", ActionBranch, "1"},
		{"BRANCH_TO_Warm up", ActionBranch, "Warm up"},
		{"BRANCH_TO_", ActionUnknown, ""},
		{"APPLY_HINT_EASY", ActionHint, "EASY"},
		{"APPLY_HINT", ActionHint, ""},
		{"PLEASE_APPLY_HINT_2", ActionHint, "2"},
		{"REPEAT_STEP", ActionRepeat, ""},
		{" REPEAT_STEP ", ActionRepeat, ""},
		{"REPEAT_STEP_NOW", ActionUnknown, ""},
		{"FAIL_CURRICULUM", ActionFail, ""},
		{"fail_curriculum", ActionUnknown, ""},
		{"", ActionUnknown, ""},
	}

	for _, tt := range tests {
		got := ParseAction(tt.raw)
		if got.Kind != tt.wantKind || got.Target != tt.wantTarget {
			t.Errorf("ParseAction(%q) = {%s %q}, want {%s %q}",
				tt.raw, got.Kind, got.Target, tt.wantKind, tt.wantTarget)
		}
	}
}

func TestParseCondition(t *testing.T) {
	c, err := ParseCondition("step_attempts >= 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Metric != "step_attempts" || c.Operator != OpGe || c.Value != "2" {
		t.Errorf("got %+v", c)
	}

	for _, bad := range []string{"", "score", "score <", "score < 5 extra", "score =~ 5"} {
		if _, err := ParseCondition(bad); err == nil {
			t.Errorf("ParseCondition(%q) expected error", bad)
		}
	}
}

func TestNewRule(t *testing.T) {
	r := NewRule("score < 50", "FAIL_CURRICULUM")
	if !r.Valid() {
		t.Fatalf("expected valid rule, got %v", r.Err())
	}
	cond, ok := r.ParsedCondition()
	if !ok || cond.String() != "score < 50" {
		t.Errorf("condition = %v (%v)", cond, ok)
	}

	bad := NewRule("score<50", "REPEAT_STEP")
	if bad.Valid() {
		t.Error("two-token condition should be invalid")
	}
	if bad.ParsedAction().Kind != ActionRepeat {
		t.Error("action should still parse for an invalid condition")
	}
}
