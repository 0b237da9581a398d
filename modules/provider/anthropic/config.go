package anthropic

import "fmt"

// defaultModel is used when none is configured. Pinned to a dated
// release for reproducibility.
const defaultModel = "claude-sonnet-4-5-20250929"

// Config holds the Anthropic provider configuration.
type Config struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`

	// Persona is the companion's standing instructions, folded into the
	// system prompt ahead of memory and mood.
	Persona string `yaml:"persona"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("anthropic: api_key is required")
	}
	return nil
}
