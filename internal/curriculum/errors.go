package curriculum

import (
	"fmt"
	"strings"
)

// LoadError rejects a curriculum wholesale. Nothing may start when a
// curriculum fails to load.
type LoadError struct {
	Source   string
	Problems []string
}

func (e *LoadError) Error() string {
	src := e.Source
	if src == "" {
		src = "curriculum"
	}
	if len(e.Problems) == 1 {
		return fmt.Sprintf("load %s: %s", src, e.Problems[0])
	}
	return fmt.Sprintf("load %s: validation failed:\n  %s", src, strings.Join(e.Problems, "\n  "))
}

// WarningKind classifies a non-fatal load problem.
type WarningKind string

const (
	// RuleParseWarning marks an adaptation rule that was dropped or will be
	// skipped at runtime.
	RuleParseWarning WarningKind = "rule_parse"

	// VersionWarning marks a version field that is not valid semver.
	VersionWarning WarningKind = "version"
)

// Warning is a non-fatal problem found while loading.
type Warning struct {
	Kind    WarningKind
	Step    string
	Order   int
	Rule    int
	Message string
}

func (w Warning) String() string {
	if w.Step == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: step %q (order %d) rule %d: %s", w.Kind, w.Step, w.Order, w.Rule, w.Message)
}
