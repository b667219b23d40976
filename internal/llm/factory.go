package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/newsintel/internal/model"
)

// NewProvider creates the configured provider; an empty name disables digests
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "gemini":
		return NewGeminiProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, gemini, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the application config
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:       llmCfg.Provider,
		Model:          llmCfg.Model,
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Timeout:        llmCfg.Timeout,
		StrictEvidence: true,
		MaxTokens:      llmCfg.MaxTokens,
		HTTPProxy:      httpCfg.HTTPProxy,
		HTTPSProxy:     httpCfg.HTTPSProxy,
		NoProxy:        httpCfg.NoProxy,
	}
}
