package llm

import (
	"context"
	"fmt"
	"strings"
)

// Digest is the generated narrative plus how it was produced
type Digest struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	Provider       string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model          string   `json:"model,omitempty" yaml:"model,omitempty"`
	StrictEvidence bool     `json:"strict_evidence" yaml:"strict_evidence"`
	Text           string   `json:"text,omitempty" yaml:"text,omitempty"`
	Warnings       []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Digester wraps an optional provider; a nil provider means disabled
type Digester struct {
	provider Provider
	config   Config
}

// NewDigester creates a digester for the configured provider
func NewDigester(config Config) (*Digester, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Digester{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (d *Digester) IsEnabled() bool {
	return d != nil && d.provider != nil
}

// ProviderName returns the configured provider name, or ""
func (d *Digester) ProviderName() string {
	if !d.IsEnabled() {
		return ""
	}
	return d.provider.Name()
}

// Generate writes the digest of a comparison. It returns nil when disabled.
// Provider failures are reported as warnings; the comparison itself is never altered.
func (d *Digester) Generate(ctx context.Context, input ComparisonInput) (*Digest, error) {
	if !d.IsEnabled() {
		return nil, nil
	}

	digest := &Digest{
		Provider:       d.provider.Name(),
		StrictEvidence: d.config.StrictEvidence,
	}

	if !d.provider.IsAvailable(ctx) {
		digest.Warnings = append(digest.Warnings, fmt.Sprintf("provider %s is not available", digest.Provider))
		return digest, nil
	}

	resp, err := d.provider.Digest(ctx, DigestRequest{
		Input:     input,
		Model:     d.config.Model,
		MaxTokens: d.config.MaxTokens,
	})
	if err != nil {
		digest.Warnings = append(digest.Warnings, fmt.Sprintf("digest failed: %v", err))
		return digest, nil
	}

	digest.Enabled = true
	digest.Model = resp.Model
	digest.Text = resp.Text
	digest.Warnings = append(digest.Warnings, fmt.Sprintf("tokens used: %d", resp.TokensUsed))
	return digest, nil
}

// RenderMarkdown renders a digest as a standalone markdown section
func RenderMarkdown(d *Digest) string {
	if d == nil || !d.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Comparison Digest\n\n")
	b.WriteString("> GENERATED TEXT. The figures above were computed independently of it.\n\n")
	fmt.Fprintf(&b, "- **Provider**: %s\n", d.Provider)
	if d.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", d.Model)
	}
	fmt.Fprintf(&b, "- **Strict Evidence Mode**: %t\n\n", d.StrictEvidence)

	if d.Text == "" {
		b.WriteString("_No digest generated._\n")
	} else {
		b.WriteString(d.Text)
		b.WriteString("\n")
	}

	if len(d.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range d.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
