package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
	ProviderNone       = "none"
)

// Config holds LLM provider configuration. It is the "llm" section of the
// scaffold config file; every key can be overridden with SCAFFOLD_LLM_*.
type Config struct {
	// Provider selects the backend. "none" disables generated hints.
	Provider string `koanf:"provider"`

	Anthropic  AnthropicConfig  `koanf:"anthropic"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Gemini     GeminiConfig     `koanf:"gemini"`
	OpenRouter OpenRouterConfig `koanf:"openrouter"`
	Retry      RetryConfig      `koanf:"retry"`

	// Timeout bounds a single Generate call, retries included.
	Timeout time.Duration `koanf:"timeout"`

	// LogBodies stores full request and response bodies with each event.
	LogBodies bool `koanf:"log_bodies"`
}

type AnthropicConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

type OpenRouterConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// RetryConfig configures exponential backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	InitialWait time.Duration `koanf:"initial_wait"`
	MaxWait     time.Duration `koanf:"max_wait"`
	Multiplier  float64       `koanf:"multiplier"`
}

// DefaultConfig returns a Config with generated hints disabled.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderNone,
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// Discover fills in the first provider whose standard API key variable
// is set (Gemini, OpenAI, Anthropic, then OpenRouter). It only applies
// when the provider is still "none" and reports whether it changed cfg.
func (c *Config) Discover() bool {
	if c.Provider != "" && c.Provider != ProviderNone {
		return false
	}
	candidates := []struct {
		env      string
		provider string
		key      *string
	}{
		{"GEMINI_API_KEY", ProviderGemini, &c.Gemini.APIKey},
		{"OPENAI_API_KEY", ProviderOpenAI, &c.OpenAI.APIKey},
		{"ANTHROPIC_API_KEY", ProviderAnthropic, &c.Anthropic.APIKey},
		{"OPENROUTER_API_KEY", ProviderOpenRouter, &c.OpenRouter.APIKey},
	}
	for _, cand := range candidates {
		if k := os.Getenv(cand.env); k != "" {
			c.Provider = cand.provider
			*cand.key = k
			return true
		}
	}
	return false
}

// Enabled reports whether a real or mock provider is selected.
func (c Config) Enabled() bool {
	return c.Provider != "" && c.Provider != ProviderNone
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	missing := func(p string) error {
		return fmt.Errorf("SCAFFOLD_LLM_%s_API_KEY is required for the %s provider", strings.ToUpper(p), p)
	}
	switch c.Provider {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return missing(c.Provider)
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return missing(c.Provider)
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return missing(c.Provider)
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return missing(c.Provider)
		}
	case ProviderMock, ProviderNone, "":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("llm.retry.max_attempts must not be negative")
	}
	return nil
}
