// Package orchestrator drives registered agents through a curriculum one
// tick at a time.
//
// Each tick visits every active agent in registration order. For the
// agent's current step it applies configuration overrides, runs up to
// max_interactions cycles, evaluates the completion criteria and, when they
// are not met, the adaptation rules. The resulting decision moves the agent
// to its next step, repeats the step, branches, or ends its curriculum.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/scaffold/internal/adaptation"
	"github.com/abhisek/scaffold/internal/curriculum"
	"github.com/abhisek/scaffold/internal/hints"
	"github.com/abhisek/scaffold/internal/progress"
	"github.com/abhisek/scaffold/internal/store"
	"github.com/abhisek/scaffold/internal/telemetry"
)

// Options configures an Orchestrator. The zero value is usable.
type Options struct {
	// RunID identifies the run in events and snapshots. Generated when empty.
	RunID string

	// MaxTicks bounds Run. Zero means no bound.
	MaxTicks int

	Logger *zap.Logger
	Sinks  []Sink

	// Hints resolves APPLY_HINT decisions. When nil a resolver with no
	// provider is used, so hints come from the step or the fallback text.
	Hints *hints.Resolver

	// Snapshots persists progress every SnapshotEvery ticks and when Run
	// returns. Nil disables snapshots.
	Snapshots     store.SnapshotRepo
	SnapshotEvery int
	SnapshotKeep  int
}

type agentState struct {
	agent  Agent
	status Status
}

// Summary reports how a run ended.
type Summary struct {
	RunID           string
	Curriculum      string
	Ticks           int
	Statuses        map[string]Status
	Finished        int
	Failed          int
	Active          int
	BudgetExhausted bool
	Cancelled       bool
}

// Orchestrator owns one run of one curriculum.
type Orchestrator struct {
	curriculum *curriculum.Curriculum
	tracker    *progress.Tracker
	env        Environment
	evaluator  *adaptation.Evaluator
	hints      *hints.Resolver
	sink       Sink
	opts       Options
	logger     *zap.Logger

	mu          sync.Mutex
	order       []string
	agents      map[string]*agentState
	transitions []Transition
	tick        int
	running     bool
}

// New creates an Orchestrator for c. Metrics are read from source.
func New(c *curriculum.Curriculum, env Environment, source telemetry.Source, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Hints == nil {
		opts.Hints = hints.NewResolver(nil, nil, hints.DefaultConfig(), opts.Logger)
	}
	opts.Hints.SetRunID(opts.RunID)

	logger := opts.Logger.Named("orchestrator").With(
		zap.String("run_id", opts.RunID),
		zap.String("curriculum", c.Name()),
	)

	return &Orchestrator{
		curriculum: c,
		tracker:    progress.NewTracker(c),
		env:        env,
		evaluator:  adaptation.NewEvaluator(source, opts.Logger),
		hints:      opts.Hints,
		sink:       MultiSink(opts.Sinks),
		opts:       opts,
		logger:     logger,
		agents:     make(map[string]*agentState),
	}
}

// RunID returns the run identifier.
func (o *Orchestrator) RunID() string { return o.opts.RunID }

// Curriculum returns the curriculum being run.
func (o *Orchestrator) Curriculum() *curriculum.Curriculum { return o.curriculum }

// Tracker exposes the progress tracker for read access.
func (o *Orchestrator) Tracker() *progress.Tracker { return o.tracker }

// Register adds an agent to the run. agent may be nil. Registration must
// happen before Run.
func (o *Orchestrator) Register(agentID string, agent Agent) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return fmt.Errorf("register %q: %w", agentID, ErrRunning)
	}
	if _, ok := o.agents[agentID]; ok {
		return fmt.Errorf("register %q: %w", agentID, ErrAlreadyRegistered)
	}

	o.tracker.Initialize(agentID)
	o.agents[agentID] = &agentState{agent: agent, status: NotStarted}
	o.order = append(o.order, agentID)
	return nil
}

// Start moves every NOT_STARTED agent into the first step.
func (o *Orchestrator) Start(ctx context.Context) error {
	for _, id := range o.agentIDs() {
		if st, _ := o.Status(id); st != NotStarted {
			continue
		}
		step, ok := o.tracker.NextStep(id)
		if !ok {
			o.finish(ctx, id, curriculum.Step{}, "", "curriculum has no steps")
			continue
		}
		if err := o.enterStep(ctx, id, step, "start", ""); err != nil {
			return err
		}
	}
	return nil
}

// Tick runs one pass over all active agents and reports whether any agent
// is still active afterwards.
func (o *Orchestrator) Tick(ctx context.Context) bool {
	start := time.Now()

	o.mu.Lock()
	o.tick++
	tick := o.tick
	o.mu.Unlock()
	ticksTotal.Inc()

	for _, id := range o.agentIDs() {
		if ctx.Err() != nil {
			break
		}
		if st, _ := o.Status(id); st != InStep {
			continue
		}
		if err := o.runAgent(ctx, id); err != nil {
			step, _ := o.tracker.CurrentStep(id)
			o.logger.Error("agent tick failed",
				zap.String("agent_id", id),
				zap.Int("tick", tick),
				zap.Error(err))
			o.fail(ctx, id, step, "", err.Error())
		}
	}

	tickDuration.Observe(time.Since(start).Seconds())

	if o.opts.SnapshotEvery > 0 && tick%o.opts.SnapshotEvery == 0 {
		o.saveSnapshot(ctx)
	}
	return o.active() > 0
}

// Run starts the run and ticks until every agent has finished or failed,
// the tick budget is spent, or ctx is cancelled. Cancellation returns the
// context error together with the summary.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return Summary{}, ErrRunning
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	o.logger.Info("run started", zap.Int("agents", len(o.agentIDs())), zap.Int("max_ticks", o.opts.MaxTicks))

	if err := o.Start(ctx); err != nil {
		return o.summary(), err
	}

	var budgetExhausted bool
	for o.active() > 0 {
		if ctx.Err() != nil {
			break
		}
		if o.opts.MaxTicks > 0 && o.Ticks() >= o.opts.MaxTicks {
			budgetExhausted = true
			break
		}
		o.Tick(ctx)
	}

	// The final snapshot must survive a cancelled run context.
	o.saveSnapshot(context.WithoutCancel(ctx))

	sum := o.summary()
	sum.BudgetExhausted = budgetExhausted
	sum.Cancelled = ctx.Err() != nil

	o.logger.Info("run ended",
		zap.Int("ticks", sum.Ticks),
		zap.Int("finished", sum.Finished),
		zap.Int("failed", sum.Failed),
		zap.Int("active", sum.Active),
		zap.Bool("budget_exhausted", sum.BudgetExhausted))

	if sum.Cancelled {
		return sum, ctx.Err()
	}
	return sum, nil
}

// Abort ends an agent's curriculum from outside the loop. status must be
// FINISHED or FAILED. The agent is skipped from its next tick on.
func (o *Orchestrator) Abort(ctx context.Context, agentID string, status Status) error {
	if !status.Terminal() {
		return fmt.Errorf("abort %q: status %s is not terminal", agentID, status)
	}
	if _, ok := o.Status(agentID); !ok {
		return fmt.Errorf("abort %q: %w", agentID, ErrUnknownAgent)
	}

	step, _ := o.tracker.CurrentStep(agentID)
	if status == Finished {
		o.finish(ctx, agentID, step, "", "aborted")
	} else {
		o.fail(ctx, agentID, step, "", "aborted")
	}
	return nil
}

// Status returns the agent's status.
func (o *Orchestrator) Status(agentID string) (Status, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.agents[agentID]
	if !ok {
		return 0, false
	}
	return a.status, true
}

// Statuses returns the status of every registered agent.
func (o *Orchestrator) Statuses() map[string]Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]Status, len(o.agents))
	for id, a := range o.agents {
		out[id] = a.status
	}
	return out
}

// Transitions returns every recorded transition in order.
func (o *Orchestrator) Transitions() []Transition {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Transition(nil), o.transitions...)
}

// Ticks returns the number of ticks executed.
func (o *Orchestrator) Ticks() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tick
}

// runAgent processes one tick for an agent, turning a panic into an error.
func (o *Orchestrator) runAgent(ctx context.Context, agentID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			agentPanics.Inc()
			o.logger.Error("agent tick panicked",
				zap.String("agent_id", agentID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			err = &panicError{value: r}
		}
	}()
	return o.stepAgent(ctx, agentID)
}

func (o *Orchestrator) stepAgent(ctx context.Context, agentID string) error {
	// Pre-step check: an abort may have landed since the loop looked.
	st, _ := o.Status(agentID)
	if st != InStep {
		return nil
	}

	step, ok := o.tracker.CurrentStep(agentID)
	if !ok {
		o.finish(ctx, agentID, step, "", "no current step")
		return nil
	}

	o.configure(ctx, agentID, step)
	o.interact(ctx, agentID, step)

	var decision adaptation.Decision
	if o.evaluator.EvaluateCompletion(ctx, agentID, step) {
		if err := o.tracker.CompleteStep(agentID, step.Order); err != nil {
			return err
		}
		decision = adaptation.ProceedDecision
		if !o.transition(agentID, CompletedStep, "criteria_met", step.Order) {
			return nil
		}
		o.emit(ctx, Event{AgentID: agentID, Kind: EventStepCompleted, Decision: decision.String()}, step)
	} else {
		attempts := o.tracker.StepAttempts(agentID, step.Order)
		decision = o.evaluator.EvaluateAdaptation(ctx, agentID, step, attempts)
		if !o.transition(agentID, Adapting, decision.String(), step.Order) {
			return nil
		}
		o.emit(ctx, Event{AgentID: agentID, Kind: EventAdaptationDecision, Decision: decision.String()}, step)
	}
	decisionsTotal.WithLabelValues(decision.Kind.String()).Inc()

	return o.apply(ctx, agentID, step, decision)
}

// configure applies the step's overrides. Failures are warnings.
func (o *Orchestrator) configure(ctx context.Context, agentID string, step curriculum.Step) {
	if len(step.EnvironmentOverrides) > 0 {
		if err := o.env.Reconfigure(ctx, step.EnvironmentOverrides); err != nil {
			o.warnConfiguration(ctx, agentID, step, "environment", err)
		}
	}

	o.mu.Lock()
	agent := o.agents[agentID].agent
	o.mu.Unlock()

	if agent != nil && len(step.AgentOverrides) > 0 {
		if err := agent.Configure(ctx, step.AgentOverrides); err != nil {
			o.warnConfiguration(ctx, agentID, step, "agent", err)
		}
	}
}

func (o *Orchestrator) warnConfiguration(ctx context.Context, agentID string, step curriculum.Step, port string, err error) {
	w := &ConfigurationWarning{AgentID: agentID, StepOrder: step.Order, Port: port, Err: err}
	configWarnings.WithLabelValues(port).Inc()
	o.emit(ctx, Event{AgentID: agentID, Kind: EventConfigurationWarning, Message: w.Error()}, step)
}

// interact runs up to max_interactions cycles, stopping early when the
// environment reports the task done or a cycle fails.
func (o *Orchestrator) interact(ctx context.Context, agentID string, step curriculum.Step) {
	limit := max(step.MaxInteractions, 1)
	for i := range limit {
		if ctx.Err() != nil {
			return
		}
		outcome, err := o.env.RunInteractionCycle(ctx, agentID)
		if err != nil {
			o.logger.Warn("interaction cycle failed",
				zap.String("agent_id", agentID),
				zap.Int("step_order", step.Order),
				zap.Int("cycle", i+1),
				zap.Error(err))
			return
		}
		if outcome.Done || o.env.IsTaskDone(ctx, agentID) {
			o.logger.Debug("task done",
				zap.String("agent_id", agentID),
				zap.Int("step_order", step.Order),
				zap.Int("cycles", i+1),
				zap.Any("detail", outcome.Detail))
			return
		}
	}
}

func (o *Orchestrator) apply(ctx context.Context, agentID string, step curriculum.Step, d adaptation.Decision) error {
	label := d.String()
	switch d.Kind {
	case adaptation.Proceed:
		next, ok := o.tracker.NextStep(agentID)
		if !ok {
			o.finish(ctx, agentID, step, label, "")
			return nil
		}
		return o.enterStep(ctx, agentID, next, "proceed", label)

	case adaptation.Repeat:
		return o.enterStep(ctx, agentID, step, "repeat", label)

	case adaptation.Hint:
		o.applyHint(ctx, agentID, step, d.HintID)
		return o.enterStep(ctx, agentID, step, "hint", label)

	case adaptation.Branch:
		target, ok := o.tracker.Lookup(d.Target)
		if !ok {
			err := &LookupError{AgentID: agentID, Target: d.Target}
			o.logger.Error("branch target not found", zap.String("agent_id", agentID), zap.Error(err))
			o.fail(ctx, agentID, step, label, err.Error())
			return nil
		}
		return o.enterStep(ctx, agentID, target, "branch", label)

	case adaptation.Fail:
		o.fail(ctx, agentID, step, label, "FAIL_CURRICULUM")
		return nil

	default:
		return fmt.Errorf("unhandled decision %s", d)
	}
}

func (o *Orchestrator) applyHint(ctx context.Context, agentID string, step curriculum.Step, hintID string) {
	h, err := o.hints.Resolve(ctx, agentID, step, hintID)
	if err != nil {
		o.logger.Warn("hint not recorded", zap.String("agent_id", agentID), zap.Error(err))
	}

	o.mu.Lock()
	agent := o.agents[agentID].agent
	o.mu.Unlock()

	msg := h.Text
	if rcv, ok := agent.(HintReceiver); ok {
		if err := rcv.ReceiveHint(ctx, h); err != nil {
			o.logger.Warn("hint delivery failed", zap.String("agent_id", agentID), zap.Error(err))
			msg = "delivery failed: " + err.Error()
		}
	} else {
		msg = "agent does not accept hints: " + h.Text
	}

	o.emit(ctx, Event{
		AgentID:  agentID,
		Kind:     EventHintApplied,
		Decision: fmt.Sprintf("APPLY_HINT(%s)", h.ID),
		Message:  msg,
	}, step)
}

// enterStep starts a new attempt of step. decision is the label of the
// decision that led here, empty for the first step.
func (o *Orchestrator) enterStep(ctx context.Context, agentID string, step curriculum.Step, trigger, decision string) error {
	if err := o.tracker.SetCurrentStep(agentID, step.Order, true); err != nil {
		if errors.Is(err, progress.ErrEnded) {
			return nil
		}
		return err
	}
	if !o.transition(agentID, InStep, trigger, step.Order) {
		return nil
	}
	o.emit(ctx, Event{AgentID: agentID, Kind: EventStepAttemptStart, Decision: decision}, step)
	return nil
}

// finish and fail end the agent's curriculum. decision is empty when the
// end was not caused by an adaptation decision, such as an abort.
func (o *Orchestrator) finish(ctx context.Context, agentID string, step curriculum.Step, decision, msg string) {
	o.end(ctx, agentID, step, Finished, EventCurriculumFinished, decision, msg)
}

func (o *Orchestrator) fail(ctx context.Context, agentID string, step curriculum.Step, decision, msg string) {
	o.end(ctx, agentID, step, Failed, EventCurriculumFailed, decision, msg)
}

func (o *Orchestrator) end(ctx context.Context, agentID string, step curriculum.Step, to Status, kind EventKind, decision, msg string) {
	trigger := msg
	if trigger == "" {
		trigger = "last_step"
	}
	if !o.transition(agentID, to, trigger, step.Order) {
		return
	}
	if err := o.tracker.End(agentID); err != nil {
		o.logger.Warn("end progress", zap.String("agent_id", agentID), zap.Error(err))
	}
	o.emit(ctx, Event{AgentID: agentID, Kind: kind, Decision: decision, Message: msg}, step)
}

// transition moves the agent to status to. It refuses to leave a terminal
// status and reports whether the move happened.
func (o *Orchestrator) transition(agentID string, to Status, trigger string, stepOrder int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	a, ok := o.agents[agentID]
	if !ok || a.status.Terminal() {
		return false
	}
	t := Transition{
		AgentID:   agentID,
		From:      a.status,
		To:        to,
		Trigger:   trigger,
		StepOrder: stepOrder,
		Tick:      o.tick,
	}
	a.status = to
	o.transitions = append(o.transitions, t)
	transitionsTotal.WithLabelValues(to.String()).Inc()
	return true
}

// emit stamps e with run data and the step, then hands it to the sinks.
func (o *Orchestrator) emit(ctx context.Context, e Event, step curriculum.Step) {
	e.RunID = o.opts.RunID
	e.Curriculum = o.curriculum.Name()
	e.StepName = step.Name
	e.StepOrder = step.Order
	if step.Name != "" {
		e.Attempt = o.tracker.StepAttempts(e.AgentID, step.Order)
	}
	e.Tick = o.Ticks()
	e.Timestamp = time.Now().UTC()

	if err := o.sink.Emit(ctx, e); err != nil {
		sinkErrors.Inc()
		o.logger.Warn("event sink failed", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}

func (o *Orchestrator) agentIDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.order...)
}

func (o *Orchestrator) active() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, a := range o.agents {
		if !a.status.Terminal() {
			n++
		}
	}
	return n
}

func (o *Orchestrator) summary() Summary {
	sum := Summary{
		RunID:      o.opts.RunID,
		Curriculum: o.curriculum.Name(),
		Ticks:      o.Ticks(),
		Statuses:   o.Statuses(),
	}
	for _, st := range sum.Statuses {
		switch st {
		case Finished:
			sum.Finished++
		case Failed:
			sum.Failed++
		default:
			sum.Active++
		}
	}
	return sum
}
