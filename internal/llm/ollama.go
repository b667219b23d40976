package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/newsintel/internal/transport"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaProvider implements the Provider interface for a local Ollama daemon
type OllamaProvider struct {
	client *transport.Client
	config Config
	logger *zap.Logger
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(config Config) (*OllamaProvider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	logger := loggerOf(config)

	// local models are slow; the API client's 30s default is too short
	client, err := transport.NewClient(transport.Options{
		BaseURL:    baseURL,
		Timeout:    timeoutOf(config, 60*time.Second),
		HTTPProxy:  config.HTTPProxy,
		HTTPSProxy: config.HTTPSProxy,
		NoProxy:    config.NoProxy,
		Logger:     logger.Named("ollama"),
	})
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}

	return &OllamaProvider{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// IsAvailable checks that the daemon lists its models
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.Do(ctx, transport.Request{Path: "/api/tags"}); err != nil {
		p.logger.Warn("ollama availability check failed", zap.String("base_url", p.client.BaseURL()), zap.Error(err))
		return false
	}
	return true
}

// Digest generates the comparison narrative with a local model
func (p *OllamaProvider) Digest(ctx context.Context, req DigestRequest) (*DigestResponse, error) {
	model := resolveModel(req.Model, p.config.Model, "")
	if model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., llama3.1:8b, mistral)")
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Input, req.AllowedURLs)
	}

	raw, err := p.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/generate",
		Body: generateRequest{
			Model:  model,
			Prompt: prompt,
			System: systemPrompt,
			Options: generateOptions{
				Temperature: 0.3,
				NumPredict:  resolveMaxTokens(req.MaxTokens, p.config.MaxTokens),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ollama API error: %w", err)
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("ollama API error: %w", transport.NewDecodeError(raw, err))
	}

	text := strings.TrimSpace(resp.Response)
	cited, err := checkCitations(text, req.AllowedURLs, p.config.StrictEvidence)
	if err != nil {
		return nil, err
	}

	if resp.Model == "" {
		resp.Model = model
	}
	// some models report no counts; estimate at four characters per token
	tokens := resp.PromptEvalCount + resp.EvalCount
	if tokens == 0 {
		tokens = (len(prompt) + len(text)) / 4
	}

	return &DigestResponse{
		Text:       text,
		CitedURLs:  cited,
		Model:      resp.Model,
		TokensUsed: tokens,
	}, nil
}
