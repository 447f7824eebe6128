package curriculum

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "name": "Basic Navigation",
  "description": "Walk to the goal, then pick up the key",
  "target_stage": "PiaSeedling",
  "author": "lab",
  "version": "1.2.0",
  "steps": [
    {
      "name": "Pick up key",
      "order": 3,
      "prompt_reference": "prompts/key",
      "completion_criteria": [{"metric": "has_key", "operator": "==", "value": true}],
      "adaptation_rules": [["step_attempts >= 3", "BRANCH_TO_1"], ["task_success == 0", "REPEAT_STEP"]]
    },
    {
      "name": "Reach goal",
      "order": 1,
      "prompt_reference": "prompts/goal",
      "completion_criteria": [{"metric": "distance", "operator": "<", "value": 1}],
      "adaptation_rules": [["consecutive_failures == 2", "APPLY_HINT_EASY"]],
      "environment_config_overrides": {"grid_size": 5},
      "max_interactions": 4,
      "hints": {"EASY": "Move toward the green square."}
    },
    {
      "name": "Open door",
      "order": 2,
      "prompt_reference": "prompts/door"
    }
  ]
}`

const sampleYAML = `
name: Basic Navigation
steps:
  - name: Reach goal
    order: 10
    prompt_reference: prompts/goal
    completion_criteria:
      - metric: score
        operator: ">="
        value: 80
    adaptation_rules:
      - ["step_attempts >= 2", "REPEAT_STEP"]
  - name: Explore
    order: 5
    prompt_reference: prompts/explore
    agent_config_overrides:
      curiosity: 0.9
`

func TestParseSortsStepsByOrder(t *testing.T) {
	c, warnings, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	steps := c.Steps()
	require.Len(t, steps, 3)
	for i, want := range []int{1, 2, 3} {
		assert.Equal(t, want, steps[i].Order, "step %d", i)
	}
	assert.Equal(t, "Reach goal", steps[0].Name)
	assert.Equal(t, 4, steps[0].MaxInteractions)
	assert.Equal(t, DefaultMaxInteractions, steps[1].MaxInteractions)
	assert.Equal(t, "Move toward the green square.", steps[0].Hints["EASY"])
	assert.Equal(t, "PiaSeedling", c.TargetStage())
	assert.Equal(t, "1.2.0", c.Version())
}

func TestParseYAML(t *testing.T) {
	c, _, err := Parse([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)

	first, ok := c.First()
	require.True(t, ok)
	assert.Equal(t, "Explore", first.Name)
	assert.Equal(t, 0.9, first.AgentOverrides["curiosity"])

	goal, ok := c.StepByOrder(10)
	require.True(t, ok)
	require.Len(t, goal.Criteria, 1)
	assert.Equal(t, OpGe, goal.Criteria[0].Operator)
	require.Len(t, goal.Rules, 1)
	assert.Equal(t, ActionRepeat, goal.Rules[0].ParsedAction().Kind)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			name: "missing name",
			doc:  `{"steps": [{"name": "a", "order": 1, "prompt_reference": "p"}]}`,
		},
		{
			name: "missing steps",
			doc:  `{"name": "c"}`,
		},
		{
			name: "empty steps",
			doc:  `{"name": "c", "steps": []}`,
		},
		{
			name: "step missing prompt_reference",
			doc:  `{"name": "c", "steps": [{"name": "a", "order": 1}]}`,
		},
		{
			name: "order not integer",
			doc:  `{"name": "c", "steps": [{"name": "a", "order": "one", "prompt_reference": "p"}]}`,
		},
		{
			name:    "duplicate order",
			doc:     `{"name": "c", "steps": [{"name": "a", "order": 1, "prompt_reference": "p"}, {"name": "b", "order": 1, "prompt_reference": "p"}]}`,
			wantMsg: "duplicate order 1",
		},
		{
			name:    "unknown operator",
			doc:     `{"name": "c", "steps": [{"name": "a", "order": 1, "prompt_reference": "p", "completion_criteria": [{"metric": "m", "operator": "=~", "value": 1}]}]}`,
			wantMsg: "unknown operator",
		},
		{
			name: "rules field not an array",
			doc:  `{"name": "c", "steps": [{"name": "a", "order": 1, "prompt_reference": "p", "adaptation_rules": "REPEAT_STEP"}]}`,
		},
		{
			name: "zero max_interactions",
			doc:  `{"name": "c", "steps": [{"name": "a", "order": 1, "prompt_reference": "p", "max_interactions": 0}]}`,
		},
		{
			name: "not json",
			doc:  `{"name": `,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, err := Parse([]byte(tt.doc), FormatJSON)
			if err == nil {
				t.Fatalf("expected error, got curriculum %q", c.Name())
			}
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("error type = %T, want *LoadError", err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParseDropsMalformedRuleEntries(t *testing.T) {
	doc := `{"name": "c", "steps": [{"name": "a", "order": 1, "prompt_reference": "p",
	  "adaptation_rules": [
	    ["score < 5", "REPEAT_STEP"],
	    ["only one element"],
	    ["a", "b", "c"],
	    [1, "REPEAT_STEP"],
	    "not a pair",
	    ["score", "FAIL_CURRICULUM"],
	    ["score > 1", "DANCE"]
	  ]}]}`

	c, warnings, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)

	step, _ := c.First()
	// The malformed condition and unknown action are kept but flagged.
	require.Len(t, step.Rules, 3)
	assert.True(t, step.Rules[0].Valid())
	assert.False(t, step.Rules[1].Valid())
	assert.Equal(t, ActionUnknown, step.Rules[2].ParsedAction().Kind)

	require.Len(t, warnings, 6)
	for _, w := range warnings {
		assert.Equal(t, RuleParseWarning, w.Kind)
		assert.Equal(t, "a", w.Step)
	}
}

func TestParseVersionWarning(t *testing.T) {
	doc := `{"name": "c", "version": "one-point-oh", "steps": [{"name": "a", "order": 1, "prompt_reference": "p"}]}`
	_, warnings, err := Parse([]byte(doc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, VersionWarning, warnings[0].Kind)

	for _, v := range []string{"1.0.0", "v2.1.3", "0.1.0-beta"} {
		if w, ok := checkVersion(v); !ok {
			t.Errorf("checkVersion(%q) warned: %s", v, w)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nav.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	c, _, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, _, err = LoadFile(filepath.Join(dir, "nav.toml"))
	var le *LoadError
	require.ErrorAs(t, err, &le)

	_, _, err = LoadFile(filepath.Join(dir, "missing.json"))
	require.ErrorAs(t, err, &le)
	assert.Equal(t, filepath.Join(dir, "missing.json"), le.Source)
}

func TestLoadReader(t *testing.T) {
	c, _, err := Load(strings.NewReader(sampleJSON), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "Basic Navigation", c.Name())
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			orig, _, err := Parse([]byte(sampleJSON), FormatJSON)
			require.NoError(t, err)

			encoded, err := Marshal(orig, format)
			require.NoError(t, err)

			reloaded, warnings, err := Parse(encoded, format)
			require.NoError(t, err)
			assert.Empty(t, warnings)

			assert.Equal(t, orig.Metadata(), reloaded.Metadata())
			a, b := orig.Steps(), reloaded.Steps()
			require.Len(t, b, len(a))
			for i := range a {
				assert.Equal(t, a[i].Order, b[i].Order)
				assert.Equal(t, a[i].Name, b[i].Name)
				assert.Equal(t, a[i].MaxInteractions, b[i].MaxInteractions)
				require.Len(t, b[i].Rules, len(a[i].Rules))
				for j := range a[i].Rules {
					assert.Equal(t, a[i].Rules[j].Condition, b[i].Rules[j].Condition)
					assert.Equal(t, a[i].Rules[j].Action, b[i].Rules[j].Action)
				}
				require.Len(t, b[i].Criteria, len(a[i].Criteria))
				for j := range a[i].Criteria {
					assert.Equal(t, a[i].Criteria[j].String(), b[i].Criteria[j].String())
				}
			}
		})
	}
}
