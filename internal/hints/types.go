// Package hints turns APPLY_HINT decisions into text an agent can use.
package hints

import "fmt"

// Source says where a hint's text came from.
type Source string

const (
	SourceStatic   Source = "static"
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Hint is a resolved hint for one step.
type Hint struct {
	ID        string
	StepOrder int
	StepName  string
	Text      string
	Source    Source
}

func (h Hint) String() string {
	id := h.ID
	if id == "" {
		id = "-"
	}
	return fmt.Sprintf("%s@%d[%s]: %s", id, h.StepOrder, h.Source, h.Text)
}

// Config holds hint generation settings. It is the "hints" section of the
// scaffold config file.
type Config struct {
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`

	// Fallback replaces the built-in fallback text when set.
	Fallback string `koanf:"fallback"`
}

// DefaultConfig returns sensible defaults for hint generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   256,
		Temperature: 0.3,
	}
}
