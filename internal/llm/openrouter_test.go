package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	t.Run("empty API key", func(t *testing.T) {
		if _, err := NewOpenRouterProvider(OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"}); err == nil {
			t.Fatal("expected error for empty API key")
		}
	})

	t.Run("model pass-through", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", Model: "gpt-4o"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ModelID() != "gpt-4o" {
			t.Errorf("model = %q, want gpt-4o", p.ModelID())
		}
	})

	t.Run("custom base URL is used", func(t *testing.T) {
		var model string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			model, _ = body["model"].(string)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletion("plain text", "stop"))
		}))
		defer server.Close()

		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey:  "sk-or-test",
			Model:   "anthropic/claude-3-haiku",
			BaseURL: server.URL,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if model != "anthropic/claude-3-haiku" {
			t.Errorf("request model = %q", model)
		}
		if string(resp.Content) != "plain text" {
			t.Errorf("content = %q", resp.Content)
		}
	})
}
