package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements the Provider interface for the Gemini API
type GeminiProvider struct {
	client *genai.Client
	config Config
	logger *zap.Logger
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = strings.TrimSuffix(config.BaseURL, "/") + "/"
	}
	if config.HTTPProxy != "" || config.HTTPSProxy != "" {
		clientConfig.HTTPClient = newHTTPClient(config, 0)
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: config,
		logger: loggerOf(config),
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable fetches the configured model's metadata
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	model := resolveModel("", p.config.Model, defaultGeminiModel)
	if _, err := p.client.Models.Get(ctx, model, nil); err != nil {
		p.logger.Warn("gemini availability check failed", zap.String("model", model), zap.Error(err))
		return false
	}
	return true
}

// Digest generates the comparison narrative via generateContent
func (p *GeminiProvider) Digest(ctx context.Context, req DigestRequest) (*DigestResponse, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Input, req.AllowedURLs)
	}
	model := resolveModel(req.Model, p.config.Model, defaultGeminiModel)

	ctx, cancel := context.WithTimeout(ctx, timeoutOf(p.config, 30*time.Second))
	defer cancel()

	resp, err := p.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.3),
			MaxOutputTokens:   int32(resolveMaxTokens(req.MaxTokens, p.config.MaxTokens)),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("no response from gemini")
	}

	cited, err := checkCitations(text, req.AllowedURLs, p.config.StrictEvidence)
	if err != nil {
		return nil, err
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &DigestResponse{
		Text:       text,
		CitedURLs:  cited,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}
