// Package generation turns grounded interaction prompts into free-form
// explanation text. Each model family has its own adapter; adapters report
// failures as errors and never substitute text of their own.
package generation

import (
	"errors"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
)

var (
	// ErrEmptyResponse is returned when a provider answers without any text.
	ErrEmptyResponse = errors.New("generator returned an empty response")
	// ErrProviderDisabled is returned by the generator configured as "none".
	ErrProviderDisabled = errors.New("text generation is disabled")
)

// Provider names accepted by NewGenerator.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderTemplate  = "template"
	ProviderNone      = "none"
)

// Config configures a provider adapter.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

const (
	defaultTimeout     = 60 * time.Second
	defaultMaxTokens   = 1024
	defaultTemperature = 0.3
)

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func (c Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}

var (
	_ interfaces.Generator = (*OpenAIGenerator)(nil)
	_ interfaces.Generator = (*AnthropicGenerator)(nil)
	_ interfaces.Generator = (*OllamaGenerator)(nil)
	_ interfaces.Generator = (*TemplateGenerator)(nil)
	_ interfaces.Generator = (*CachedGenerator)(nil)
	_ interfaces.Generator = (*RateLimitedGenerator)(nil)
	_ interfaces.Generator = disabledGenerator{}
)
