package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsintel/internal/api"
	"github.com/ppiankov/newsintel/internal/model"
)

var (
	pageFlag     int
	pageSizeFlag int
	sortFlag     string
	minStrength  float64
)

var keywordCmd = &cobra.Command{
	Use:     "keyword",
	Aliases: []string{"kw"},
	Short:   "Browse tracked keywords",
}

var keywordSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "List keywords, optionally filtered by a search term",
	Example: `  newsintel keyword search
  newsintel keyword search thai --lang th --page 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		q := api.KeywordQuery{Language: s.language(), Page: pageFlag, PageSize: pageSizeFlag}
		if len(args) == 1 {
			q.Query = args[0]
		}

		page, err := s.client.SearchKeywords(ctx, q)
		if err != nil {
			return fmt.Errorf("search keywords: %w", err)
		}

		return render(cmd.OutOrStdout(), s.cfg.Output.Format, page, func(w io.Writer) error {
			t := newTable(w, "ID", "KEYWORD", "CATEGORY", "ARTICLES", "SENTIMENT")
			for _, k := range page.Results {
				articles := "-"
				if k.ArticleCount != nil {
					articles = strconv.Itoa(*k.ArticleCount)
				}
				t.row(k.ID, k.Label(s.language()), k.Category, articles, score(k.AvgSentiment))
			}
			if err := t.flush(); err != nil {
				return err
			}
			return pageFooter(w, page.Pagination, len(page.Results))
		})
	}),
}

var keywordGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a keyword",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		view := s.client.WatchKeyword(id, s.language())
		defer view.Close()

		k, err := view.Load(ctx)
		if err != nil {
			return fmt.Errorf("get keyword %d: %w", id, err)
		}

		return render(cmd.OutOrStdout(), s.cfg.Output.Format, k, func(w io.Writer) error {
			p := &printer{w: w}
			p.printf("%s (#%d)\n", k.Label(s.language()), k.ID)
			p.printf("  Category:   %s\n", k.Category)
			for _, tr := range []struct {
				lang  string
				value *string
			}{{"th", k.KeywordTH}, {"de", k.KeywordDE}, {"da", k.KeywordDA}} {
				if tr.value != nil && *tr.value != "" {
					p.printf("  [%s]:       %s\n", tr.lang, *tr.value)
				}
			}
			if k.ArticleCount != nil {
				p.printf("  Articles:   %d\n", *k.ArticleCount)
			}
			p.printf("  Sentiment:  %s\n", score(k.AvgSentiment))
			if k.PopularityScore != nil {
				p.printf("  Popularity: %.1f\n", *k.PopularityScore)
			}
			if snap := k.Sentiment; snap != nil {
				d := snap.Distribution
				p.printf("  Breakdown:  %d positive, %d neutral, %d negative\n",
					d.StronglyPositive+d.Positive, d.Neutral, d.Negative+d.StronglyNegative)
			}
			return p.err
		})
	}),
}

var keywordArticlesCmd = &cobra.Command{
	Use:   "articles <id>",
	Short: "List a keyword's articles",
	Example: `  newsintel keyword articles 12
  newsintel keyword articles 12 --sort sentiment --page-size 50`,
	Args: cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		sortBy := api.ArticleSort(sortFlag)
		if sortBy != "" && sortBy != api.SortByDate && sortBy != api.SortBySentiment {
			return fmt.Errorf("invalid --sort %q (supported: date, sentiment)", sortFlag)
		}

		page, err := s.client.KeywordArticles(ctx, id, api.ArticleQuery{Page: pageFlag, PageSize: pageSizeFlag, SortBy: sortBy})
		if err != nil {
			return fmt.Errorf("keyword %d articles: %w", id, err)
		}

		return render(cmd.OutOrStdout(), s.cfg.Output.Format, page, func(w io.Writer) error {
			if err := articleTable(w, page.Results); err != nil {
				return err
			}
			return pageFooter(w, page.Pagination, len(page.Results))
		})
	}),
}

var keywordRelationsCmd = &cobra.Command{
	Use:   "relations <id>",
	Short: "Show keywords related to a keyword",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		graph, err := s.client.Relations(ctx, id, minStrength)
		if err != nil {
			return fmt.Errorf("keyword %d relations: %w", id, err)
		}

		return render(cmd.OutOrStdout(), s.cfg.Output.Format, graph, func(w io.Writer) error {
			labels := make(map[string]string, len(graph.Nodes))
			var central string
			for _, n := range graph.Nodes {
				labels[n.ID] = n.Label
				if n.Type == "central" {
					central = n.ID
				}
			}

			p := &printer{w: w}
			p.printf("%s: %d relations\n\n", graph.KeywordEN, graph.TotalRelations)
			if p.err != nil {
				return p.err
			}

			t := newTable(w, "RELATED", "TYPE", "STRENGTH")
			for _, e := range graph.Edges {
				other := e.Target
				if e.Target == central {
					other = e.Source
				}
				label := labels[other]
				if label == "" {
					label = other
				}
				t.row(label, e.RelationshipType, fmt.Sprintf("%.2f", e.Strength))
			}
			return t.flush()
		})
	}),
}

func init() {
	rootCmd.AddCommand(keywordCmd)
	keywordCmd.AddCommand(keywordSearchCmd, keywordGetCmd, keywordArticlesCmd, keywordRelationsCmd)

	for _, c := range []*cobra.Command{keywordSearchCmd, keywordArticlesCmd} {
		c.Flags().IntVar(&pageFlag, "page", 0, "page number (server default when 0)")
		c.Flags().IntVar(&pageSizeFlag, "page-size", 0, "page size (server default when 0)")
	}
	keywordArticlesCmd.Flags().StringVar(&sortFlag, "sort", "", "sort order (date, sentiment)")
	keywordRelationsCmd.Flags().Float64Var(&minStrength, "min-strength", api.DefaultMinStrength, "minimum relation strength")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func articleTable(w io.Writer, articles []model.Article) error {
	t := newTable(w, "ID", "DATE", "SOURCE", "SENTIMENT", "TITLE")
	for _, a := range articles {
		date := a.PublishedDate
		if len(date) > 10 {
			date = date[:10]
		}
		t.row(a.ID, date, a.Source, fmt.Sprintf("%+.2f", a.Sentiment.Overall), truncate(a.Title, 70))
	}
	return t.flush()
}

func pageFooter(w io.Writer, p model.Pagination, shown int) error {
	if p.TotalPages == 0 {
		_, err := fmt.Fprintf(w, "\n%d results\n", shown)
		return err
	}
	_, err := fmt.Fprintf(w, "\npage %d of %d (%d total)\n", p.Page, p.TotalPages, p.Total)
	return err
}
