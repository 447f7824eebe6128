package curriculum

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a curriculum.
type document struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	TargetStage string         `json:"target_stage,omitempty" yaml:"target_stage,omitempty"`
	Author      string         `json:"author,omitempty" yaml:"author,omitempty"`
	Version     string         `json:"version,omitempty" yaml:"version,omitempty"`
	Steps       []stepDocument `json:"steps" yaml:"steps"`
}

type stepDocument struct {
	Name                 string            `json:"name" yaml:"name"`
	Order                int               `json:"order" yaml:"order"`
	Description          string            `json:"description,omitempty" yaml:"description,omitempty"`
	PromptReference      string            `json:"prompt_reference" yaml:"prompt_reference"`
	CompletionCriteria   []Criterion       `json:"completion_criteria,omitempty" yaml:"completion_criteria,omitempty"`
	AdaptationRules      any               `json:"adaptation_rules,omitempty" yaml:"adaptation_rules,omitempty"`
	EnvironmentOverrides map[string]any    `json:"environment_config_overrides,omitempty" yaml:"environment_config_overrides,omitempty"`
	AgentOverrides       map[string]any    `json:"agent_config_overrides,omitempty" yaml:"agent_config_overrides,omitempty"`
	MaxInteractions      *int              `json:"max_interactions,omitempty" yaml:"max_interactions,omitempty"`
	Hints                map[string]string `json:"hints,omitempty" yaml:"hints,omitempty"`
}

// Marshal encodes c in the given format. Parsing the output yields a
// curriculum with the same step ordering and rules.
func Marshal(c *Curriculum, format Format) ([]byte, error) {
	doc := document{
		Name:        c.meta.Name,
		Description: c.meta.Description,
		TargetStage: c.meta.TargetStage,
		Author:      c.meta.Author,
		Version:     c.meta.Version,
		Steps:       make([]stepDocument, len(c.steps)),
	}

	for i, s := range c.steps {
		sd := stepDocument{
			Name:                 s.Name,
			Order:                s.Order,
			Description:          s.Description,
			PromptReference:      s.PromptReference,
			CompletionCriteria:   s.Criteria,
			EnvironmentOverrides: s.EnvironmentOverrides,
			AgentOverrides:       s.AgentOverrides,
			Hints:                s.Hints,
		}
		if s.MaxInteractions != DefaultMaxInteractions {
			n := s.MaxInteractions
			sd.MaxInteractions = &n
		}
		if len(s.Rules) > 0 {
			rules := make([][]string, len(s.Rules))
			for j, r := range s.Rules {
				rules[j] = []string{r.Condition, r.Action}
			}
			sd.AdaptationRules = rules
		}
		doc.Steps[i] = sd
	}

	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		return yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
