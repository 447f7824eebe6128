package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider generates structured output from a language model.
type Provider interface {
	// Generate sends req to the model. When req.Schema is set the returned
	// Content has been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes a single generation call.
type Request struct {
	System   string
	Messages []Message

	// Schema is the JSON Schema the response must conform to. Nil means
	// free text.
	Schema *Schema

	MaxTokens int

	// Temperature controls randomness in [0, 1]. Zero leaves the provider
	// default in place.
	Temperature float64
}

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserPrompt builds a single-turn request.
func UserPrompt(system, prompt string, schema *Schema, maxTokens int) Request {
	return Request{
		System:    system,
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		Schema:    schema,
		MaxTokens: maxTokens,
	}
}

// Schema names a JSON Schema definition. Name is kebab-case and doubles
// as the tool or schema name on providers that need one.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response holds the model output.
type Response struct {
	// Content is validated JSON when the request carried a schema,
	// otherwise the raw text.
	Content json.RawMessage

	Usage Usage
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Decode unmarshals Content into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Content, v); err != nil {
		return fmt.Errorf("decode %s response: %w", r.Model, err)
	}
	return nil
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
