package monitor

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/scaffold/internal/orchestrator"
)

// sender is the part of *tea.Program the sink needs.
type sender interface {
	Send(msg tea.Msg)
}

// Sink forwards orchestrator events to a running program.
type Sink struct {
	p sender
}

// NewSink creates a Sink sending to p.
func NewSink(p *tea.Program) *Sink {
	return &Sink{p: p}
}

func (s *Sink) Emit(_ context.Context, e orchestrator.Event) error {
	s.p.Send(EventMsg(e))
	return nil
}

// RunFunc runs the orchestrator, emitting to sink.
type RunFunc func(ctx context.Context, sink orchestrator.Sink) (orchestrator.Summary, error)

// Run shows the monitor while run executes. Quitting the monitor cancels
// the run; Run waits for it to return either way.
func Run(ctx context.Context, m Model, run RunFunc, opts ...tea.ProgramOption) (orchestrator.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.cancel = cancel
	p := tea.NewProgram(m, opts...)

	var (
		sum    orchestrator.Summary
		runErr error
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		sum, runErr = run(ctx, NewSink(p))
		p.Send(DoneMsg{Summary: sum, Err: runErr})
	}()

	_, uiErr := p.Run()
	cancel()
	<-done

	if uiErr != nil {
		return sum, uiErr
	}
	return sum, runErr
}
