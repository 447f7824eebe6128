package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/scaffold/internal/store"
)

// LoggingProvider records every call as a store event, a log line and a
// set of metrics. A nil repo skips persistence.
type LoggingProvider struct {
	inner     Provider
	eventRepo store.EventRepo
	logger    *zap.Logger
	bodies    bool
}

// WithLogging wraps p with event logging.
func WithLogging(p Provider, repo store.EventRepo, logger *zap.Logger, bodies bool) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProvider{inner: p, eventRepo: repo, logger: logger.Named("llm"), bodies: bodies}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)
	model := l.inner.ModelID()

	resp, err := l.inner.Generate(ctx, req)
	elapsed := time.Since(start)

	data := store.LLMRequestEventData{
		Provider:  model,
		Model:     model,
		Purpose:   purpose,
		LatencyMs: elapsed.Milliseconds(),
		Success:   err == nil,
	}
	if l.bodies {
		data.RequestBody = serializeRequest(req)
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		if l.bodies {
			data.ResponseBody = string(resp.Content)
		}
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	requestsTotal.WithLabelValues(model, purpose, result).Inc()
	requestLatency.WithLabelValues(model).Observe(elapsed.Seconds())
	tokensTotal.WithLabelValues(model, "input").Add(float64(data.InputTokens))
	tokensTotal.WithLabelValues(model, "output").Add(float64(data.OutputTokens))

	fields := []zap.Field{
		zap.String("model", data.Model),
		zap.String("purpose", purpose),
		zap.Duration("latency", elapsed),
		zap.Int("input_tokens", data.InputTokens),
		zap.Int("output_tokens", data.OutputTokens),
	}
	if err != nil {
		l.logger.Warn("llm request failed", append(fields, zap.Error(err))...)
	} else {
		l.logger.Debug("llm request", fields...)
	}

	// A failed event write never fails the request.
	if l.eventRepo != nil {
		if logErr := l.eventRepo.AppendLLMRequest(ctx, data); logErr != nil {
			l.logger.Warn("failed to record llm request event", zap.Error(logErr))
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest renders the request in a readable transcript form.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}

	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}

	return b.String()
}
