package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Digest writes a short narrative of a keyword comparison
	Digest(ctx context.Context, req DigestRequest) (*DigestResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// DigestRequest contains the input for a comparison digest
type DigestRequest struct {
	// Input is the comparison reduced to per-keyword statistics
	Input ComparisonInput

	// AllowedURLs is the only set of URLs the text may cite
	AllowedURLs []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// DigestResponse contains the generated text
type DigestResponse struct {
	Text       string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictEvidence rejects text citing URLs outside AllowedURLs
	StrictEvidence bool

	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	// Logger receives availability failures; nil discards them
	Logger *zap.Logger
}

// DefaultConfig returns the disabled default
func DefaultConfig() Config {
	return Config{
		Provider:       "",
		Timeout:        30,
		StrictEvidence: true,
		MaxTokens:      600,
	}
}

const systemPrompt = "You describe keyword sentiment comparisons using only the figures you are given."

// BuildPrompt constructs the default digest prompt
func BuildPrompt(input ComparisonInput, allowedURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are describing how news sentiment towards %d keywords moved over the last %d days.
Sentiment ranges from -1 (strongly negative) to +1 (strongly positive).

RULES:
1. Use ONLY the figures below. Do not speculate about causes.
2. You may only cite these URLs:
%s
3. Mention keywords without data as missing, never as neutral.

Keywords:
`, len(input.Keywords), input.Days, joinURLs(allowedURLs))

	for _, k := range input.Keywords {
		if k.Failed || k.Points == 0 {
			fmt.Fprintf(&b, "- %s: no data\n", k.Label)
			continue
		}
		fmt.Fprintf(&b, "- %s: %d days, mean %+.2f, first %+.2f, last %+.2f, range %+.2f..%+.2f, trend %s\n",
			k.Label, k.Points, k.Mean, k.First, k.Last, k.Min, k.Max, k.Direction)
	}

	b.WriteString("\nWrite 3-4 sentences comparing the keywords.")
	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(none, do not cite any URL)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= 20 {
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-20)
			break
		}
		fmt.Fprintf(&b, "\n- %s", u)
	}
	return b.String()
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)]+`)

// extractURLs returns the unique URLs cited in text
func extractURLs(text string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}
	return unique
}

// checkCitations extracts cited URLs and, in strict mode, rejects any not allowed
func checkCitations(text string, allowed []string, strict bool) ([]string, error) {
	cited := extractURLs(text)
	if !strict {
		return cited, nil
	}
	for _, u := range cited {
		if !contains(allowed, u) {
			return nil, fmt.Errorf("citation leak: disallowed URL %s", u)
		}
	}
	return cited, nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func resolveModel(reqModel, cfgModel, fallback string) string {
	if reqModel != "" {
		return reqModel
	}
	if cfgModel != "" {
		return cfgModel
	}
	return fallback
}

func resolveMaxTokens(reqMax, cfgMax int) int {
	if reqMax > 0 {
		return reqMax
	}
	if cfgMax > 0 {
		return cfgMax
	}
	return 600
}
