package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newsintel/internal/api"
)

var (
	uploadTitle  string
	uploadSource string
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document for sentiment and keyword analysis",
	Long: `Upload sends a text, PDF or Word document to the server, which stores it as
an article, scores its sentiment and links it to the keywords it mentions.
Cached keyword, search and sentiment results are refreshed afterwards.

Example:
  newsintel upload report.pdf --title "Quarterly outlook" --source "Central bank"`,
	Args: cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()

		title := uploadTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		if s.cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Uploading %s...\n", path)
		}

		res, err := s.client.UploadDocument(ctx, api.Document{
			FileName: filepath.Base(path),
			Content:  f,
			Title:    title,
			Source:   uploadSource,
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", path, err)
		}

		return render(cmd.OutOrStdout(), s.cfg.Output.Format, res, func(w io.Writer) error {
			p := &printer{w: w}
			p.printf("✓ %s\n", res.Article.Title)
			p.printf("  Article:   #%d (%d words)\n", res.Article.ID, res.Article.WordCount)
			p.printf("  Sentiment: %+.2f %s\n", res.Sentiment.Overall, res.Classification)
			if len(res.Keywords) > 0 {
				names := make([]string, len(res.Keywords))
				for i, k := range res.Keywords {
					names[i] = k.Keyword
				}
				p.printf("  Keywords:  %s\n", strings.Join(names, ", "))
			}
			return p.err
		})
	}),
}

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API is reachable",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		h, err := s.client.Health(ctx)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, h, func(w io.Writer) error {
			p := &printer{w: w}
			p.printf("%s: %s", s.client.BaseURL(), h.Status)
			if h.Version != "" {
				p.printf(" (version %s)", h.Version)
			}
			p.printf("\n")
			return p.err
		})
	}),
}

func init() {
	rootCmd.AddCommand(uploadCmd, healthCmd)

	uploadCmd.Flags().StringVar(&uploadTitle, "title", "", "article title (default: file name)")
	uploadCmd.Flags().StringVar(&uploadSource, "source", api.DefaultUploadSource, "source label")
}
