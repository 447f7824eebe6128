package hints

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/abhisek/scaffold/internal/curriculum"
	"github.com/abhisek/scaffold/internal/llm"
	"github.com/abhisek/scaffold/internal/store"
)

// Recorder persists resolved hints. store.EventRepo satisfies it.
type Recorder interface {
	AppendHintEvent(ctx context.Context, data store.HintEventData) error
}

type cacheKey struct {
	order int
	id    string
}

type hintOutput struct {
	Hint        string `json:"hint"`
	FocusMetric string `json:"focus_metric"`
}

// Resolver finds the text for a hint request: the step's static hints
// first, then the LLM provider, then a fallback. Generated hints are
// cached per step and hint id.
type Resolver struct {
	provider llm.Provider
	recorder Recorder
	cfg      Config
	logger   *zap.Logger

	mu    sync.Mutex
	runID string
	cache map[cacheKey]string
}

// NewResolver creates a Resolver. provider and recorder may be nil.
func NewResolver(provider llm.Provider, recorder Recorder, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		provider: provider,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.Named("hints"),
		cache:    make(map[cacheKey]string),
	}
}

// SetRunID tags subsequently recorded hint events with id.
func (r *Resolver) SetRunID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runID = id
}

// Resolve returns the hint for step. It never fails to produce text; the
// error reports a recording failure only.
func (r *Resolver) Resolve(ctx context.Context, agentID string, step curriculum.Step, hintID string) (Hint, error) {
	h := Hint{ID: hintID, StepOrder: step.Order, StepName: step.Name}

	if text, id, ok := staticHint(step, hintID); ok {
		h.ID, h.Text, h.Source = id, text, SourceStatic
	} else if text, ok := r.generate(ctx, step, hintID); ok {
		h.Text, h.Source = text, SourceLLM
	} else {
		h.Text, h.Source = r.fallback(step), SourceFallback
	}

	r.logger.Debug("hint resolved",
		zap.String("agent_id", agentID),
		zap.Int("step_order", step.Order),
		zap.String("hint_id", h.ID),
		zap.String("source", string(h.Source)))

	if r.recorder == nil {
		return h, nil
	}

	r.mu.Lock()
	runID := r.runID
	r.mu.Unlock()

	err := r.recorder.AppendHintEvent(ctx, store.HintEventData{
		RunID:     runID,
		AgentID:   agentID,
		StepOrder: step.Order,
		HintID:    h.ID,
		Source:    string(h.Source),
		Text:      h.Text,
	})
	if err != nil {
		return h, fmt.Errorf("record hint: %w", err)
	}
	return h, nil
}

// staticHint looks up hintID in the step's hints. An empty id selects the
// step's only hint when it has exactly one.
func staticHint(step curriculum.Step, hintID string) (text, id string, ok bool) {
	if hintID != "" {
		text, ok = step.Hints[hintID]
		return text, hintID, ok
	}
	if len(step.Hints) == 1 {
		for id, text := range step.Hints {
			return text, id, true
		}
	}
	return "", "", false
}

func (r *Resolver) generate(ctx context.Context, step curriculum.Step, hintID string) (string, bool) {
	if r.provider == nil {
		return "", false
	}

	key := cacheKey{order: step.Order, id: hintID}
	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached, true
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeHint)
	req := llm.Request{
		System:      hintSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildHintUserMessage(step, hintID)}},
		Schema:      HintSchema,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	}

	resp, err := r.provider.Generate(ctx, req)
	if err != nil {
		r.logger.Warn("hint generation failed, using fallback",
			zap.Int("step_order", step.Order),
			zap.String("hint_id", hintID),
			zap.Error(err))
		return "", false
	}

	var out hintOutput
	if err := resp.Decode(&out); err != nil || out.Hint == "" {
		r.logger.Warn("unusable hint response, using fallback",
			zap.Int("step_order", step.Order),
			zap.Error(err))
		return "", false
	}

	r.mu.Lock()
	r.cache[key] = out.Hint
	r.mu.Unlock()
	return out.Hint, true
}

func (r *Resolver) fallback(step curriculum.Step) string {
	if r.cfg.Fallback != "" {
		return r.cfg.Fallback
	}
	return fmt.Sprintf("Review the objective of step %q and try a different approach.", step.Name)
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
