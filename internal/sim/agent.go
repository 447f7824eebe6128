package sim

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/abhisek/scaffold/internal/hints"
)

var (
	ErrConfigureRejected = errors.New("agent rejected configuration")
	ErrHintRejected      = errors.New("agent rejected hint")
)

// Agent records the configuration and hints it is given.
type Agent struct {
	ID            string
	FailConfigure bool
	RejectHints   bool

	mu      sync.Mutex
	configs []map[string]any
	hints   []hints.Hint
}

func (a *Agent) Configure(_ context.Context, cfg map[string]any) error {
	if a.FailConfigure {
		return ErrConfigureRejected
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configs = append(a.configs, maps.Clone(cfg))
	return nil
}

func (a *Agent) ReceiveHint(_ context.Context, h hints.Hint) error {
	if a.RejectHints {
		return ErrHintRejected
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hints = append(a.hints, h)
	return nil
}

// Configs returns the accepted configurations in order.
func (a *Agent) Configs() []map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]map[string]any(nil), a.configs...)
}

// Hints returns the received hints in order.
func (a *Agent) Hints() []hints.Hint {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]hints.Hint(nil), a.hints...)
}
