package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/newsintel/internal/api"
	"github.com/ppiankov/newsintel/internal/compare"
	"github.com/ppiankov/newsintel/internal/llm"
	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/worker"
)

var (
	compareDays int
	idsFile     string
	summarize   bool
	llmProvider string
	llmModel    string
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare <id>...",
	Short: "Compare the sentiment timelines of several keywords",
	Long: `Compare loads the sentiment timeline of up to 6 keywords in parallel and
merges them into one table with a row per day. A keyword without data on a
day shows an empty cell, never zero. With two or more keywords the server's
ranking (most positive / most negative) is shown as well.

Example:
  newsintel compare 12 40 7
  newsintel compare 12,40 --days 90
  newsintel compare --file keywords.txt --summarize --llm-provider ollama --llm-model llama3.1:8b`,
	RunE: run(runCompare),
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().IntVar(&compareDays, "days", api.DefaultTimelineDays, "number of days")
	compareCmd.Flags().StringVar(&idsFile, "file", "", "read keyword ids from a file (one or more per line)")

	// LLM flags
	compareCmd.Flags().BoolVar(&summarize, "summarize", false, "add a generated narrative digest")
	compareCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, gemini, ollama; default from config)")
	compareCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (default from config)")
}

func runCompare(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
	ids, err := compareIDs(args, idsFile)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no keyword ids given")
	}

	if s.cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Comparing %d keywords over %d days\n", len(ids), compareDays)
	}

	cmp, err := s.client.Compare(ctx, ids, compareDays)
	if err != nil {
		return err
	}

	view := newComparisonView(cmp)
	for _, id := range ids {
		if ferr, ok := cmp.Failures[id]; ok {
			fmt.Fprintf(os.Stderr, "✗ keyword %d: %s\n", id, FormatError(ferr))
		}
	}

	if summarize {
		digest, err := digestComparison(ctx, s, cmp)
		if err != nil {
			return err
		}
		view.Digest = digest
	}

	return render(cmd.OutOrStdout(), s.cfg.Output.Format, view, view.text)
}

func compareIDs(args []string, file string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		parsed, err := compare.ParseIDs(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed...)
	}
	if file != "" {
		fromFile, err := worker.ReadIDsFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		ids = append(ids, fromFile...)
	}
	return ids, nil
}

func digestComparison(ctx context.Context, s *session, cmp *api.Comparison) (*llm.Digest, error) {
	cfg := llm.ConfigFromModel(s.cfg.LLM, s.cfg.HTTP)
	cfg.Logger = s.logger
	if llmProvider != "" && llmProvider != cfg.Provider {
		// the configured model belongs to the configured provider
		cfg.Provider = llmProvider
		cfg.Model = ""
	}
	if llmModel != "" {
		cfg.Model = llmModel
	}
	if cfg.Provider == "" {
		return nil, fmt.Errorf("--summarize needs an LLM provider (set llm.provider or --llm-provider)")
	}
	switch {
	case cfg.Provider == "openai" && cfg.APIKey == "":
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case cfg.Provider == "gemini" && cfg.APIKey == "":
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	case cfg.Provider == "ollama" && cfg.BaseURL == "":
		cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	digester, err := llm.NewDigester(cfg)
	if err != nil {
		return nil, fmt.Errorf("create digester: %w", err)
	}

	if s.cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Generating digest with %s...\n", digester.ProviderName())
	}

	digest, err := digester.Generate(ctx, llm.InputFromSeries(cmp.Days, cmp.Series, cmp.Failures))
	if err != nil {
		return nil, err
	}
	for _, w := range digest.Warnings {
		s.logger.Debug("digest", zap.String("note", w))
	}
	return digest, nil
}

// comparisonView is the rendered form of a comparison
type comparisonView struct {
	Days     int                      `json:"days"`
	Keywords []legendView             `json:"keywords"`
	Rows     []rowView                `json:"rows"`
	Summary  *model.ComparisonSummary `json:"summary,omitempty"`
	Failures map[string]string        `json:"failures,omitempty"`
	Digest   *llm.Digest              `json:"digest,omitempty"`

	labels []string
}

type legendView struct {
	KeywordID int64  `json:"keyword_id"`
	Label     string `json:"label"`
	Color     string `json:"color"`
	Points    int    `json:"points"`
}

type rowView struct {
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

func newComparisonView(cmp *api.Comparison) *comparisonView {
	v := &comparisonView{
		Days:     cmp.Days,
		Keywords: make([]legendView, 0, len(cmp.Legend)),
		Rows:     make([]rowView, 0, len(cmp.Rows)),
	}
	for _, item := range cmp.Legend {
		v.Keywords = append(v.Keywords, legendView{KeywordID: item.EntityID, Label: item.Label, Color: item.Color, Points: item.Points})
		v.labels = append(v.labels, item.Label)
	}
	for _, row := range cmp.Rows {
		v.Rows = append(v.Rows, rowView{Date: row.Date.String(), Values: row.Values})
	}
	if cmp.Summary != nil {
		v.Summary = &cmp.Summary.Summary
	}
	if len(cmp.Failures) > 0 {
		v.Failures = make(map[string]string, len(cmp.Failures))
		for id, err := range cmp.Failures {
			v.Failures[fmt.Sprint(id)] = FormatError(err)
		}
	}
	return v
}

func (v *comparisonView) text(w io.Writer) error {
	p := &printer{w: w}
	p.printf("Sentiment over the last %d days\n\n", v.Days)
	for _, k := range v.Keywords {
		p.printf("  %s  %s (#%d, %d days)\n", k.Color, k.Label, k.KeywordID, k.Points)
	}
	p.printf("\n")
	if p.err != nil {
		return p.err
	}

	t := newTable(w, append([]string{"DATE"}, v.labels...)...)
	for _, row := range v.Rows {
		cols := []any{row.Date}
		for _, label := range v.labels {
			if value, ok := row.Values[label]; ok {
				cols = append(cols, fmt.Sprintf("%+.2f", value))
			} else {
				cols = append(cols, "")
			}
		}
		t.row(cols...)
	}
	if err := t.flush(); err != nil {
		return err
	}

	if v.Summary != nil {
		p.printf("\n")
		if k := v.Summary.MostPositive; k != nil {
			p.printf("Most positive: %s (%s)\n", k.KeywordEN, score(k.AvgSentiment))
		}
		if k := v.Summary.MostNegative; k != nil {
			p.printf("Most negative: %s (%s)\n", k.KeywordEN, score(k.AvgSentiment))
		}
	}

	if len(v.Failures) > 0 {
		ids := make([]string, 0, len(v.Failures))
		for id := range v.Failures {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		p.printf("\nNot loaded:\n")
		for _, id := range ids {
			p.printf("  #%s: %s\n", id, v.Failures[id])
		}
	}

	if md := llm.RenderMarkdown(v.Digest); md != "" {
		p.printf("\n%s", md)
	} else if v.Digest != nil {
		for _, warning := range v.Digest.Warnings {
			p.printf("\ndigest: %s\n", warning)
		}
	}
	return p.err
}
