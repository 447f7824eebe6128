package curriculum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Format is a curriculum document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported curriculum file extension %q", filepath.Ext(path))
	}
}

// LoadFile reads and parses the curriculum at path.
func LoadFile(path string) (*Curriculum, []Warning, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, &LoadError{Source: path, Problems: []string{err.Error()}}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &LoadError{Source: path, Problems: []string{err.Error()}}
	}
	return parse(data, format, path)
}

// Load parses a curriculum from r.
func Load(r io.Reader, format Format) (*Curriculum, []Warning, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, &LoadError{Problems: []string{fmt.Sprintf("read: %v", err)}}
	}
	return parse(data, format, "")
}

// Parse parses a curriculum document held in memory.
func Parse(data []byte, format Format) (*Curriculum, []Warning, error) {
	return parse(data, format, "")
}

func parse(data []byte, format Format, source string) (*Curriculum, []Warning, error) {
	fail := func(problems ...string) (*Curriculum, []Warning, error) {
		return nil, nil, &LoadError{Source: source, Problems: problems}
	}

	canonical, err := toJSON(data, format)
	if err != nil {
		return fail(err.Error())
	}

	schema, err := compiledSchema()
	if err != nil {
		return fail(err.Error())
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(canonical))
	if err != nil {
		return fail(fmt.Sprintf("decode: %v", err))
	}
	if err := schema.Validate(inst); err != nil {
		return fail(schemaProblems(err)...)
	}

	var doc document
	if err := json.Unmarshal(canonical, &doc); err != nil {
		return fail(fmt.Sprintf("decode: %v", err))
	}

	meta := Metadata{
		Name:        doc.Name,
		Description: doc.Description,
		TargetStage: doc.TargetStage,
		Author:      doc.Author,
		Version:     doc.Version,
	}

	var warnings []Warning
	if w, ok := checkVersion(doc.Version); !ok {
		warnings = append(warnings, w)
	}

	steps := make([]Step, 0, len(doc.Steps))
	for _, sd := range doc.Steps {
		rules, ws := decodeRules(sd)
		warnings = append(warnings, ws...)

		maxInteractions := DefaultMaxInteractions
		if sd.MaxInteractions != nil {
			maxInteractions = *sd.MaxInteractions
		}
		steps = append(steps, Step{
			Name:                 sd.Name,
			Order:                sd.Order,
			Description:          sd.Description,
			PromptReference:      sd.PromptReference,
			Criteria:             sd.CompletionCriteria,
			Rules:                rules,
			EnvironmentOverrides: sd.EnvironmentOverrides,
			AgentOverrides:       sd.AgentOverrides,
			MaxInteractions:      maxInteractions,
			Hints:                sd.Hints,
		})
	}

	c, err := New(meta, steps)
	if err != nil {
		if le, ok := err.(*LoadError); ok && source != "" {
			le.Source = source
		}
		return nil, nil, err
	}
	return c, warnings, nil
}

// decodeRules turns the raw rule list of a step into typed rules. Entries
// that are not [condition, action] string pairs are dropped.
func decodeRules(sd stepDocument) ([]Rule, []Warning) {
	entries, _ := sd.AdaptationRules.([]any)
	if len(entries) == 0 {
		return nil, nil
	}

	warn := func(i int, format string, args ...any) Warning {
		return Warning{
			Kind:    RuleParseWarning,
			Step:    sd.Name,
			Order:   sd.Order,
			Rule:    i,
			Message: fmt.Sprintf(format, args...),
		}
	}

	var (
		rules    []Rule
		warnings []Warning
	)
	for i, entry := range entries {
		pair, ok := entry.([]any)
		if !ok || len(pair) != 2 {
			warnings = append(warnings, warn(i, "dropped: want a [condition, action] pair, got %v", entry))
			continue
		}
		cond, okCond := pair[0].(string)
		action, okAction := pair[1].(string)
		if !okCond || !okAction {
			warnings = append(warnings, warn(i, "dropped: condition and action must be strings, got %v", entry))
			continue
		}

		r := NewRule(cond, action)
		if !r.Valid() {
			warnings = append(warnings, warn(i, "%v; rule will be skipped", r.Err()))
		}
		if r.ParsedAction().Kind == ActionUnknown {
			warnings = append(warnings, warn(i, "unrecognized action %q resolves to PROCEED", action))
		}
		rules = append(rules, r)
	}
	return rules, warnings
}

// checkVersion accepts an empty version or any semver string, with or
// without the leading "v".
func checkVersion(v string) (Warning, bool) {
	if v == "" {
		return Warning{}, true
	}
	canonical := v
	if !strings.HasPrefix(canonical, "v") {
		canonical = "v" + canonical
	}
	if semver.IsValid(canonical) {
		return Warning{}, true
	}
	return Warning{Kind: VersionWarning, Message: fmt.Sprintf("version %q is not valid semver", v)}, false
}

// toJSON normalises a document to canonical JSON bytes.
func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		if !json.Valid(data) {
			var v any
			err := json.Unmarshal(data, &v)
			return nil, fmt.Errorf("decode json: %v", err)
		}
		return data, nil
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		out, err := json.Marshal(normalizeYAML(v))
		if err != nil {
			return nil, fmt.Errorf("convert yaml: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// normalizeYAML converts map[any]any nodes, which encoding/json rejects,
// into map[string]any.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}

// schemaProblems splits a schema validation error into one problem per line.
func schemaProblems(err error) []string {
	var problems []string
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			problems = append(problems, line)
		}
	}
	return problems
}
