package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/abhisek/scaffold/internal/logging"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2,
	}
}

var okHint = MockResponse{Content: json.RawMessage(`{"text":"look left"}`)}

func unavailable() MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
}

func TestRetry(t *testing.T) {
	invalid := MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`nope`), Err: errors.New("nope")}}

	tests := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{"first attempt", []MockResponse{okHint}, false, 1},
		{"transient then ok", []MockResponse{unavailable(), okHint}, false, 2},
		{"exhausted", []MockResponse{unavailable(), unavailable(), unavailable(), okHint}, true, 3},
		{"max tokens is final", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, okHint}, true, 1},
		{"invalid retried once", []MockResponse{invalid, invalid, okHint}, true, 2},
		{"rate limit honours retry-after", []MockResponse{
			{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}}, okHint,
		}, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			resp, err := WithRetry(mock, fastRetry(), nil).Generate(context.Background(), Request{})

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if string(resp.Content) != string(okHint.Content) {
					t.Errorf("content = %s", resp.Content)
				}
			}
			if got := mock.CallCount(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRetry_MaxTokensKeepsType(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"text":`)}})
	_, err := WithRetry(mock, fastRetry(), nil).Generate(context.Background(), Request{})

	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T", err)
	}
}

func TestRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := NewMockProvider(unavailable(), okHint)
	if _, err := WithRetry(mock, fastRetry(), nil).Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_LogsEachRetry(t *testing.T) {
	obs := logging.NewObserved(zapcore.DebugLevel)
	mock := NewMockProvider(unavailable(), unavailable(), okHint)

	if _, err := WithRetry(mock, fastRetry(), obs.Logger).Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := obs.Count(zapcore.DebugLevel, "retrying llm request"); n != 2 {
		t.Errorf("retry log entries = %d, want 2", n)
	}
}

func TestRetry_ModelID(t *testing.T) {
	if id := WithRetry(NewMockProvider(), fastRetry(), nil).ModelID(); id != "mock" {
		t.Fatalf("ModelID = %q", id)
	}
}

func TestRetry_ZeroAttemptsStillCallsOnce(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithRetry(mock, RetryConfig{}, nil)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err       error
		class     string
		retryable bool
	}{
		{context.Canceled, "context", false},
		{&ErrMaxTokensExceeded{}, "max_tokens", false},
		{&ErrRateLimit{Err: errors.New("429")}, "rate_limit", true},
		{&ErrProviderUnavailable{}, "unavailable", true},
		{errors.New("connection reset"), "other", true},
	}
	for _, tt := range tests {
		invalid := false
		class, retry := classify(tt.err, &invalid)
		if class != tt.class || retry != tt.retryable {
			t.Errorf("classify(%v) = (%q, %v), want (%q, %v)", tt.err, class, retry, tt.class, tt.retryable)
		}
	}
}

func TestTimeout_AppliesDeadline(t *testing.T) {
	slow := &blockingProvider{}
	p := WithTimeout(slow, 5*time.Millisecond)

	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if WithTimeout(slow, 0) != Provider(slow) {
		t.Fatal("zero timeout should return the provider unchanged")
	}
}

type blockingProvider struct{}

func (blockingProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) ModelID() string { return "blocking" }
