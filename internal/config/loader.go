package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCAFFOLD_"

const maxConfigFileSize = 1 << 20

// llmSections are the nested blocks under "llm". Their keys need a second
// split so SCAFFOLD_LLM_OPENAI_API_KEY lands on llm.openai.api_key.
var llmSections = []string{"anthropic", "openai", "gemini", "openrouter", "retry"}

// Load builds a Config from defaults, the YAML file at path and SCAFFOLD_*
// environment variables. An empty path means DefaultPath; a missing file
// is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	k := koanf.New(".")

	data, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	if data != nil {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LLM.Discover()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s is larger than %d bytes", path, maxConfigFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return data, nil
}

// envKey maps an environment variable to a config key:
//
//	SCAFFOLD_RUN_MAX_TICKS          -> run.max_ticks
//	SCAFFOLD_LLM_PROVIDER           -> llm.provider
//	SCAFFOLD_LLM_RETRY_MAX_ATTEMPTS -> llm.retry.max_attempts
//
// Keys without a section are dropped.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok || field == "" {
		return ""
	}
	if section == "llm" {
		for _, sub := range llmSections {
			if rest, found := strings.CutPrefix(field, sub+"_"); found && rest != "" {
				return section + "." + sub + "." + rest
			}
		}
	}
	return section + "." + field
}
