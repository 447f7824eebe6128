// Package adaptation decides whether a step is complete and, when it is
// not, which adaptation rule applies.
package adaptation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/scaffold/internal/curriculum"
	"github.com/abhisek/scaffold/internal/telemetry"
)

// TelemetryGap reports a metric that could not be read. The affected
// criterion or condition counts as not satisfied.
type TelemetryGap struct {
	AgentID string
	Metric  string
	Err     error
}

func (g *TelemetryGap) Error() string {
	if g.Err != nil {
		return fmt.Sprintf("telemetry gap for %s/%s: %v", g.AgentID, g.Metric, g.Err)
	}
	return fmt.Sprintf("telemetry gap for %s/%s: metric not reported", g.AgentID, g.Metric)
}

func (g *TelemetryGap) Unwrap() error { return g.Err }

// Evaluator judges step attempts against telemetry. It holds no per-agent
// state.
type Evaluator struct {
	source telemetry.Source
	logger *zap.Logger
}

// NewEvaluator creates an Evaluator reading from source.
func NewEvaluator(source telemetry.Source, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{source: source, logger: logger.Named("adaptation")}
}

// EvaluateCompletion reports whether every completion criterion of step
// holds for the agent. A step without criteria never completes on its own.
func (e *Evaluator) EvaluateCompletion(ctx context.Context, agentID string, step curriculum.Step) bool {
	if len(step.Criteria) == 0 {
		Completions.WithLabelValues("no_criteria").Inc()
		return false
	}

	for _, c := range step.Criteria {
		value, ok := e.metric(ctx, agentID, c.Metric)
		if !ok {
			Completions.WithLabelValues("gap").Inc()
			return false
		}
		pass, err := compare(value, c.Value, c.Operator)
		if err != nil {
			e.logger.Debug("criterion not comparable",
				zap.String("agent_id", agentID),
				zap.String("step", step.Name),
				zap.Stringer("criterion", c),
				zap.Error(err),
			)
		}
		if !pass {
			Completions.WithLabelValues("unmet").Inc()
			return false
		}
	}

	Completions.WithLabelValues("complete").Inc()
	return true
}

// EvaluateAdaptation picks the action of the first rule whose condition
// holds. attempts is the agent's attempt count for step and is what the
// step_attempts metric resolves to. No matching or unrecognized rule
// yields Proceed.
func (e *Evaluator) EvaluateAdaptation(ctx context.Context, agentID string, step curriculum.Step, attempts int) Decision {
	if len(step.Rules) == 0 {
		return ProceedDecision
	}

	log := e.logger.With(
		zap.String("agent_id", agentID),
		zap.String("step", step.Name),
		zap.Int("step_order", step.Order),
	)

	for i, r := range step.Rules {
		cond, ok := r.ParsedCondition()
		if !ok {
			log.Debug("skipping malformed rule", zap.Int("rule", i), zap.Error(r.Err()))
			continue
		}

		var value any
		if cond.Metric == curriculum.AttemptsMetric {
			value = attempts
		} else if value, ok = e.metric(ctx, agentID, cond.Metric); !ok {
			continue
		}

		held, err := compare(value, cond.Value, cond.Operator)
		if err != nil {
			log.Debug("condition not comparable", zap.Int("rule", i), zap.Error(err))
		}
		if !held {
			continue
		}

		d := decisionFor(r.ParsedAction(), i)
		if d.Kind == Proceed {
			log.Warn("unrecognized rule action, proceeding",
				zap.Int("rule", i),
				zap.String("action", r.Action),
			)
		}
		RuleMatches.WithLabelValues(d.Kind.String()).Inc()
		return d
	}

	log.Warn("no adaptation rule matched, proceeding", zap.Int("attempts", attempts))
	return ProceedDecision
}

// metric fetches a metric, logging and counting gaps.
func (e *Evaluator) metric(ctx context.Context, agentID, name string) (any, bool) {
	value, ok, err := e.source.Metric(ctx, agentID, name)
	if err == nil && ok && value != nil {
		return value, true
	}

	gap := &TelemetryGap{AgentID: agentID, Metric: name, Err: err}
	TelemetryGaps.WithLabelValues(name).Inc()
	e.logger.Debug("telemetry gap", zap.Error(gap))
	return nil, false
}

func decisionFor(a curriculum.Action, rule int) Decision {
	switch a.Kind {
	case curriculum.ActionRepeat:
		return Decision{Kind: Repeat, Rule: rule}
	case curriculum.ActionBranch:
		return Decision{Kind: Branch, Target: a.Target, Rule: rule}
	case curriculum.ActionHint:
		return Decision{Kind: Hint, HintID: a.Target, Rule: rule}
	case curriculum.ActionFail:
		return Decision{Kind: Fail, Rule: rule}
	default:
		return Decision{Kind: Proceed, Rule: rule}
	}
}
