package nlp

import "github.com/sashabaranov/go-openai"

// Default configuration values
const (
	DefaultMaxTokens = 256
	DefaultModel     = openai.GPT4oMini
)

// Config holds configuration for OpenAI-compatible clients.
type Config struct {
	// APIKey is excluded from JSON serialization to keep it out of logs.
	APIKey  string `json:"-" mapstructure:"api_key"`
	Model   string `json:"model,omitempty" mapstructure:"model"`
	BaseURL string `json:"base_url,omitempty" mapstructure:"base_url"`

	Temperature float32 `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
}
