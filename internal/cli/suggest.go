package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsintel/internal/api"
	"github.com/ppiankov/newsintel/internal/model"
)

var (
	suggestTH       string
	suggestCategory string
	suggestReason   string
	suggestEmail    string
	statusFlag      string
	suggestLimit    int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest keywords to track and vote on suggestions",
}

var suggestCreateCmd = &cobra.Command{
	Use:     "create <keyword>",
	Short:   "Suggest a new keyword",
	Example: `  newsintel suggest create "Mekong dams" --category environment --reason "frequent coverage"`,
	Args:    cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		in := model.NewSuggestion{KeywordEN: args[0]}
		in.KeywordTH = optional(suggestTH)
		in.Category = optional(suggestCategory)
		in.Reason = optional(suggestReason)
		in.ContactEmail = optional(suggestEmail)

		res, err := s.client.CreateSuggestion(ctx, in)
		if err != nil {
			return fmt.Errorf("create suggestion: %w", err)
		}

		return render(cmd.OutOrStdout(), s.cfg.Output.Format, res, func(w io.Writer) error {
			msg := res.Message
			if msg == "" {
				msg = "Suggestion submitted"
			}
			_, err := fmt.Fprintf(w, "✓ %s (#%d, %d votes)\n", msg, res.Suggestion.ID, res.Suggestion.Votes)
			return err
		})
	}),
}

var suggestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List keyword suggestions",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		list, err := s.client.Suggestions(ctx, model.SuggestionStatus(statusFlag), suggestLimit)
		if err != nil {
			return fmt.Errorf("list suggestions: %w", err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, list, func(w io.Writer) error {
			return suggestionTable(w, list.Suggestions)
		})
	}),
}

var suggestGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		sg, err := s.client.Suggestion(ctx, id)
		if err != nil {
			return fmt.Errorf("get suggestion %d: %w", id, err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, sg, func(w io.Writer) error {
			return suggestionText(w, sg)
		})
	}),
}

var suggestVoteCmd = &cobra.Command{
	Use:   "vote <id>",
	Short: "Vote for a suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		res, err := s.client.VoteSuggestion(ctx, id)
		if err != nil {
			return fmt.Errorf("vote for suggestion %d: %w", id, err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, res, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "✓ Voted for %q (%d votes)\n", res.Suggestion.KeywordEN, res.Suggestion.Votes)
			return err
		})
	}),
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.AddCommand(suggestCreateCmd, suggestListCmd, suggestGetCmd, suggestVoteCmd)

	f := suggestCreateCmd.Flags()
	f.StringVar(&suggestTH, "th", "", "Thai translation")
	f.StringVar(&suggestCategory, "category", "", "category (person, place, organization, topic, ...)")
	f.StringVar(&suggestReason, "reason", "", "why this keyword should be tracked")
	f.StringVar(&suggestEmail, "email", "", "contact email")

	suggestListCmd.Flags().StringVar(&statusFlag, "status", "", "filter by status (pending, approved, rejected, merged)")
	suggestListCmd.Flags().IntVar(&suggestLimit, "limit", api.DefaultSuggestionLimit, "maximum suggestions")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func suggestionTable(w io.Writer, suggestions []model.Suggestion) error {
	t := newTable(w, "ID", "KEYWORD", "CATEGORY", "STATUS", "VOTES", "EVALUATION")
	for _, sg := range suggestions {
		decision := "-"
		if e := sg.LatestEvaluation; e != nil && e.Decision != "" {
			decision = e.Decision
		}
		t.row(sg.ID, sg.KeywordEN, sg.Category, sg.Status, sg.Votes, decision)
	}
	return t.flush()
}

func suggestionText(w io.Writer, sg model.Suggestion) error {
	p := &printer{w: w}
	p.printf("%s (#%d)\n", sg.KeywordEN, sg.ID)
	if th := str(sg.KeywordTH); th != "" {
		p.printf("  Thai:     %s\n", th)
	}
	p.printf("  Category: %s\n", sg.Category)
	p.printf("  Status:   %s\n", sg.Status)
	p.printf("  Votes:    %d\n", sg.Votes)
	if reason := str(sg.Reason); reason != "" {
		p.printf("  Reason:   %s\n", reason)
	}
	p.printf("  Created:  %s\n", sg.CreatedAt)
	if e := sg.LatestEvaluation; e != nil {
		evaluationText(p, *e)
	}
	return p.err
}

func evaluationText(p *printer, e model.Evaluation) {
	p.printf("\n  Evaluation (%s)\n", e.CreatedAt)
	p.printf("    decision:      %s\n", e.Decision)
	p.printf("    searchability: %s\n", score(e.SearchabilityScore))
	p.printf("    significance:  %s\n", score(e.SignificanceScore))
	if e.Specificity != "" {
		p.printf("    specificity:   %s\n", e.Specificity)
	}
	if e.Reasoning != "" {
		p.printf("    reasoning:     %s\n", e.Reasoning)
	}
}
