package generation

import (
	"fmt"
	"strings"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
)

// NewGenerator creates the adapter named by config.Provider. An empty
// provider selects the template generator.
func NewGenerator(config Config) (interfaces.Generator, error) {
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case ProviderOpenAI:
		return NewOpenAIGenerator(config)
	case ProviderAnthropic, "claude":
		return NewAnthropicGenerator(config)
	case ProviderOllama:
		return NewOllamaGenerator(config)
	case ProviderTemplate, "":
		return NewTemplateGenerator(), nil
	case ProviderNone:
		return disabledGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s (supported: openai, anthropic, ollama, template, none)", config.Provider)
	}
}
