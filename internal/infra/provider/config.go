package provider

import (
	"fmt"
	"time"

	"postpilot/pkg/config"
)

// Config holds the tunables shared by both provider implementations.
type Config struct {
	// Model is the provider-specific model identifier.
	Model string

	// MaxTokens caps the response size of one draft call.
	MaxTokens int

	// Timeout is the budget for a single API call.
	Timeout time.Duration
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// LoadAnthropicConfig reads the Anthropic provider settings from the
// environment, defaulting to a current Sonnet model.
//
// Environment variables:
//   - ANTHROPIC_MODEL: model id (default claude-sonnet-4-5)
//   - GENERATION_MAX_TOKENS: response token cap (default 1024)
//   - GENERATION_TIMEOUT: per-call budget (default 60s)
func LoadAnthropicConfig() Config {
	return Config{
		Model:     config.GetEnvString("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		MaxTokens: config.GetEnvInt("GENERATION_MAX_TOKENS", 1024),
		Timeout:   config.GetEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
	}
}

// LoadOpenAIConfig reads the OpenAI provider settings from the
// environment.
//
// Environment variables:
//   - OPENAI_MODEL: model id (default gpt-4o-mini)
//   - GENERATION_MAX_TOKENS: response token cap (default 1024)
//   - GENERATION_TIMEOUT: per-call budget (default 60s)
func LoadOpenAIConfig() Config {
	return Config{
		Model:     config.GetEnvString("OPENAI_MODEL", "gpt-4o-mini"),
		MaxTokens: config.GetEnvInt("GENERATION_MAX_TOKENS", 1024),
		Timeout:   config.GetEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
	}
}
