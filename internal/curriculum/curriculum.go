package curriculum

import (
	"fmt"
	"sort"
	"strconv"
)

// DefaultMaxInteractions is applied to steps that do not set max_interactions.
const DefaultMaxInteractions = 1

// Curriculum is an immutable, ordered set of steps. It is safe to share
// across goroutines and agents.
type Curriculum struct {
	meta    Metadata
	steps   []Step
	byOrder map[int]int
	byName  map[string]int
}

// New validates steps and builds a Curriculum sorted ascending by order.
// Steps with MaxInteractions == 0 get DefaultMaxInteractions.
// Returns a *LoadError describing every problem found.
func New(meta Metadata, steps []Step) (*Curriculum, error) {
	sorted := make([]Step, len(steps))
	for i, s := range steps {
		sorted[i] = s.clone()
		if sorted[i].MaxInteractions == 0 {
			sorted[i].MaxInteractions = DefaultMaxInteractions
		}
	}

	if problems := validateSteps(meta, sorted); len(problems) > 0 {
		return nil, &LoadError{Source: meta.Name, Problems: problems}
	}

	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	c := &Curriculum{
		meta:    meta,
		steps:   sorted,
		byOrder: make(map[int]int, len(sorted)),
		byName:  make(map[string]int, len(sorted)),
	}
	for i, s := range sorted {
		c.byOrder[s.Order] = i
		if _, dup := c.byName[s.Name]; !dup {
			c.byName[s.Name] = i
		}
	}
	return c, nil
}

func (c *Curriculum) Name() string        { return c.meta.Name }
func (c *Curriculum) Description() string { return c.meta.Description }
func (c *Curriculum) TargetStage() string { return c.meta.TargetStage }
func (c *Curriculum) Author() string      { return c.meta.Author }
func (c *Curriculum) Version() string     { return c.meta.Version }
func (c *Curriculum) Metadata() Metadata  { return c.meta }

// Len returns the number of steps.
func (c *Curriculum) Len() int { return len(c.steps) }

// Steps returns a copy of the steps in ascending order.
func (c *Curriculum) Steps() []Step {
	out := make([]Step, len(c.steps))
	for i, s := range c.steps {
		out[i] = s.clone()
	}
	return out
}

// First returns the step with the lowest order.
func (c *Curriculum) First() (Step, bool) {
	if len(c.steps) == 0 {
		return Step{}, false
	}
	return c.steps[0].clone(), true
}

// At returns the step at list index i.
func (c *Curriculum) At(i int) (Step, bool) {
	if i < 0 || i >= len(c.steps) {
		return Step{}, false
	}
	return c.steps[i].clone(), true
}

// Index returns the list index of the step with the given order, or -1.
func (c *Curriculum) Index(order int) int {
	if i, ok := c.byOrder[order]; ok {
		return i
	}
	return -1
}

// StepByOrder returns the step with the given order.
func (c *Curriculum) StepByOrder(order int) (Step, bool) {
	i, ok := c.byOrder[order]
	if !ok {
		return Step{}, false
	}
	return c.steps[i].clone(), true
}

// HasOrder reports whether a step with the given order exists.
func (c *Curriculum) HasOrder(order int) bool {
	_, ok := c.byOrder[order]
	return ok
}

// Lookup resolves a branch target. Numeric identifiers are matched against
// step orders first; anything unmatched is tried as a step name.
func (c *Curriculum) Lookup(identifier string) (Step, bool) {
	if n, err := strconv.Atoi(identifier); err == nil {
		if s, ok := c.StepByOrder(n); ok {
			return s, true
		}
	}
	if i, ok := c.byName[identifier]; ok {
		return c.steps[i].clone(), true
	}
	return Step{}, false
}

// validateSteps performs the structural checks shared by New and Load.
func validateSteps(meta Metadata, steps []Step) []string {
	var errs []string

	if meta.Name == "" {
		errs = append(errs, "curriculum name is required")
	}
	if len(steps) == 0 {
		errs = append(errs, "curriculum has no steps")
	}

	seen := make(map[int]string, len(steps))
	for _, s := range steps {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("#%d", s.Order)
			errs = append(errs, fmt.Sprintf("step with order %d has no name", s.Order))
		}
		if prev, dup := seen[s.Order]; dup {
			errs = append(errs, fmt.Sprintf("duplicate order %d (steps %q and %q)", s.Order, prev, label))
		}
		seen[s.Order] = label

		if s.MaxInteractions < 1 {
			errs = append(errs, fmt.Sprintf("step %q: max_interactions must be >= 1, got %d", label, s.MaxInteractions))
		}
		for i, cr := range s.Criteria {
			if cr.Metric == "" {
				errs = append(errs, fmt.Sprintf("step %q: criterion %d has no metric", label, i))
			}
			if _, ok := ParseOperator(string(cr.Operator)); !ok {
				errs = append(errs, fmt.Sprintf("step %q: criterion %d has unknown operator %q", label, i, cr.Operator))
			}
		}
	}
	return errs
}
