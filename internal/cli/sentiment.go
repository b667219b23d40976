package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsintel/internal/api"
	"github.com/ppiankov/newsintel/internal/model"
)

var daysFlag int

var sentimentCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Show keyword and article sentiment",
}

var sentimentKeywordCmd = &cobra.Command{
	Use:   "keyword <id>",
	Short: "Show a keyword's sentiment distribution",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		snap, err := s.client.Sentiment(ctx, id)
		if err != nil {
			return fmt.Errorf("keyword %d sentiment: %w", id, err)
		}

		return render(cmd.OutOrStdout(), s.cfg.Output.Format, snap, func(w io.Writer) error {
			d := snap.Distribution
			p := &printer{w: w}
			p.printf("%s: %s average over %d articles\n\n", snap.KeywordEN, score(snap.AvgSentiment), snap.TotalArticles)
			p.printf("  strongly positive  %d\n", d.StronglyPositive)
			p.printf("  positive           %d\n", d.Positive)
			p.printf("  neutral            %d\n", d.Neutral)
			p.printf("  negative           %d\n", d.Negative)
			p.printf("  strongly negative  %d\n", d.StronglyNegative)
			if b := snap.BySource; b != nil {
				if b.MostPositive != nil {
					p.printf("\n  most positive source: %s (%+.2f)\n", b.MostPositive.Source, b.MostPositive.AvgSentiment)
				}
				if b.MostNegative != nil {
					p.printf("  most negative source: %s (%+.2f)\n", b.MostNegative.Source, b.MostNegative.AvgSentiment)
				}
			}
			return p.err
		})
	}),
}

var sentimentTimelineCmd = &cobra.Command{
	Use:   "timeline <id>",
	Short: "Show a keyword's daily sentiment",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		tl, err := s.client.Timeline(ctx, id, daysFlag)
		if err != nil {
			return fmt.Errorf("keyword %d timeline: %w", id, err)
		}

		return render(cmd.OutOrStdout(), s.cfg.Output.Format, tl, func(w io.Writer) error {
			return timelineText(w, tl)
		})
	}),
}

var sentimentArticleCmd = &cobra.Command{
	Use:   "article <id>",
	Short: "Show an article's sentiment",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		detail, err := s.client.ArticleSentiment(ctx, id)
		if err != nil {
			return fmt.Errorf("article %d sentiment: %w", id, err)
		}

		return render(cmd.OutOrStdout(), s.cfg.Output.Format, detail, func(w io.Writer) error {
			p := &printer{w: w}
			if detail.Title != "" {
				p.printf("%s\n", detail.Title)
			}
			p.printf("  Overall:        %s\n", score(detail.Overall))
			p.printf("  Classification: %s\n", detail.Classification)
			if detail.Confidence != nil {
				p.printf("  Confidence:     %.2f\n", *detail.Confidence)
			}
			if detail.Subjectivity != nil {
				p.printf("  Subjectivity:   %.2f\n", *detail.Subjectivity)
			}
			return p.err
		})
	}),
}

func init() {
	rootCmd.AddCommand(sentimentCmd)
	sentimentCmd.AddCommand(sentimentKeywordCmd, sentimentTimelineCmd, sentimentArticleCmd)

	sentimentTimelineCmd.Flags().IntVar(&daysFlag, "days", api.DefaultTimelineDays, "number of days")
}

func timelineText(w io.Writer, tl model.SentimentTimeline) error {
	trend := tl.EffectiveTrend()

	p := &printer{w: w}
	p.printf("%s: %d days", tl.KeywordEN, len(tl.Timeline))
	if tl.Period.StartDate != "" {
		p.printf(" (%s to %s)", tl.Period.StartDate, tl.Period.EndDate)
	}
	p.printf(", trend %s", trend.Direction)
	if trend.ChangePercent != 0 {
		p.printf(" (%+.1f%%)", trend.ChangePercent)
	}
	p.printf("\n\n")
	if p.err != nil {
		return p.err
	}

	t := newTable(w, "DATE", "AVERAGE", "POS", "NEU", "NEG", "TOTAL")
	for _, pt := range tl.Timeline {
		t.row(pt.Date, score(pt.AvgSentiment), pt.PositiveCount, pt.NeutralCount, pt.NegativeCount, pt.TotalArticles)
	}
	return t.flush()
}
