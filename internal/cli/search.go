package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsintel/internal/api"
	"github.com/ppiankov/newsintel/internal/model"
)

var (
	limitFlag        int
	minSimilarity    float64
	keywordFilter    int64
	sourceFilter     string
	languageFilter   string
	startDate        string
	endDate          string
	articleSortFlag  string
	sentimentMinFlag float64
	sentimentMaxFlag float64
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search articles",
}

var searchSemanticCmd = &cobra.Command{
	Use:   "semantic <query>",
	Short: "Find articles by meaning rather than exact words",
	Example: `  newsintel search semantic "trade tensions in southeast asia"
  newsintel search semantic "flooding" --limit 10 --min-similarity 0.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		q := api.SemanticQuery{
			Query:         strings.Join(args, " "),
			Limit:         limitFlag,
			Page:          pageFlag,
			PageSize:      pageSizeFlag,
			MinSimilarity: minSimilarity,
			KeywordID:     keywordFilter,
			Source:        sourceFilter,
			Language:      languageFilter,
		}

		result, err := s.client.SemanticSearch(ctx, q)
		if err != nil {
			return fmt.Errorf("semantic search: %w", err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, result, func(w io.Writer) error {
			return semanticTable(w, result)
		})
	}),
}

var searchSimilarCmd = &cobra.Command{
	Use:   "similar <article-id>",
	Short: "Find articles similar to an article",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		result, err := s.client.SimilarArticles(ctx, id, limitFlag, minSimilarity)
		if err != nil {
			return fmt.Errorf("similar to article %d: %w", id, err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, result, func(w io.Writer) error {
			if result.SourceTitle != nil {
				if _, err := fmt.Fprintf(w, "Similar to: %s\n\n", *result.SourceTitle); err != nil {
					return err
				}
			}
			return semanticTable(w, result)
		})
	}),
}

var searchArticlesCmd = &cobra.Command{
	Use:   "articles [query]",
	Short: "Filter stored articles",
	Example: `  newsintel search articles election --source "Bangkok Post" --from 2024-01-01
  newsintel search articles --keyword 12 --sentiment-min 0.5 --sort sentiment_desc`,
	Args: cobra.ArbitraryArgs,
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		q := api.ArticleSearch{
			Query:     strings.Join(args, " "),
			KeywordID: keywordFilter,
			Source:    sourceFilter,
			Language:  languageFilter,
			StartDate: startDate,
			EndDate:   endDate,
			SortBy:    articleSortFlag,
			Page:      pageFlag,
			PageSize:  pageSizeFlag,
		}
		if cmd.Flags().Changed("sentiment-min") {
			v := sentimentMinFlag
			q.SentimentMin = &v
		}
		if cmd.Flags().Changed("sentiment-max") {
			v := sentimentMaxFlag
			q.SentimentMax = &v
		}

		page, err := s.client.SearchArticles(ctx, q)
		if err != nil {
			return fmt.Errorf("search articles: %w", err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, page, func(w io.Writer) error {
			if err := articleTable(w, page.Results); err != nil {
				return err
			}
			return pageFooter(w, page.Pagination, len(page.Results))
		})
	}),
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchSemanticCmd, searchSimilarCmd, searchArticlesCmd)

	for _, c := range []*cobra.Command{searchSemanticCmd, searchSimilarCmd} {
		c.Flags().IntVar(&limitFlag, "limit", 0, "maximum results (server default when 0)")
		c.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "minimum similarity score (0-1)")
	}
	for _, c := range []*cobra.Command{searchSemanticCmd, searchArticlesCmd} {
		c.Flags().IntVar(&pageFlag, "page", 0, "page number")
		c.Flags().IntVar(&pageSizeFlag, "page-size", 0, "page size")
		c.Flags().Int64Var(&keywordFilter, "keyword", 0, "restrict to a keyword id")
		c.Flags().StringVar(&sourceFilter, "source", "", "restrict to a news source")
		c.Flags().StringVar(&languageFilter, "language", "", "restrict to an article language")
	}

	f := searchArticlesCmd.Flags()
	f.StringVar(&startDate, "from", "", "earliest publication date (YYYY-MM-DD)")
	f.StringVar(&endDate, "to", "", "latest publication date (YYYY-MM-DD)")
	f.StringVar(&articleSortFlag, "sort", "", "date_desc, date_asc, sentiment_desc, sentiment_asc, relevance")
	f.Float64Var(&sentimentMinFlag, "sentiment-min", -1, "minimum sentiment")
	f.Float64Var(&sentimentMaxFlag, "sentiment-max", 1, "maximum sentiment")
}

func semanticTable(w io.Writer, result model.SemanticSearchResult) error {
	t := newTable(w, "ID", "SIMILARITY", "SOURCE", "SENTIMENT", "TITLE")
	for _, r := range result.Results {
		similarity := "n/a"
		if r.Similarity != nil {
			similarity = fmt.Sprintf("%.2f", *r.Similarity)
		}
		sentiment := "n/a"
		if r.Sentiment != nil {
			sentiment = score(r.Sentiment.Overall)
		}
		t.row(r.ID, similarity, r.Source, sentiment, truncate(r.Title, 70))
	}
	if err := t.flush(); err != nil {
		return err
	}
	if result.Pagination != nil {
		return pageFooter(w, *result.Pagination, len(result.Results))
	}
	_, err := fmt.Fprintf(w, "\n%d results\n", len(result.Results))
	return err
}
