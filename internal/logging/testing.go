package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Observed is a logger whose entries are captured for assertions.
type Observed struct {
	Logger *zap.Logger
	logs   *observer.ObservedLogs
}

// NewObserved creates a logger recording every entry at or above level.
func NewObserved(level zapcore.Level) *Observed {
	core, logs := observer.New(level)
	return &Observed{Logger: zap.New(core), logs: logs}
}

// All returns all recorded entries.
func (o *Observed) All() []observer.LoggedEntry {
	return o.logs.All()
}

// Count returns the number of entries at level whose message contains msg.
func (o *Observed) Count(level zapcore.Level, msg string) int {
	n := 0
	for _, e := range o.logs.All() {
		if e.Level == level && strings.Contains(e.Message, msg) {
			n++
		}
	}
	return n
}

// AssertLogged fails tb unless an entry at level containing msg was logged.
func (o *Observed) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if o.Count(level, msg) == 0 {
		tb.Errorf("expected log at %v containing %q, got %d entries", level, msg, len(o.logs.All()))
	}
}

// AssertNotLogged fails tb if an entry at level containing msg was logged.
func (o *Observed) AssertNotLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if n := o.Count(level, msg); n > 0 {
		tb.Errorf("unexpected %d log(s) at %v containing %q", n, level, msg)
	}
}
