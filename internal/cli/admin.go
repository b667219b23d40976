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
	adminUser     string
	adminPassword string

	onlyEnabled    bool
	historyLimit   int
	pendingLimit   int
	triggerSearch  bool
	rejectReason   string
	sourceName     string
	sourceURL      string
	sourceLanguage string
	sourceCountry  string
	sourceParser   string
	sourcePriority int
	sourceTags     []string
	sourceEnabled  bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administer news sources and keyword suggestions",
	Long: `Admin commands authenticate with HTTP basic auth. Credentials come from
--user/--password, admin.username/admin.password in the config file, or
NEWSINTEL_ADMIN_USERNAME / NEWSINTEL_ADMIN_PASSWORD.`,
}

var adminSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage news sources",
}

var adminSuggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Review keyword suggestions",
}

func (s *session) admin() *api.Admin {
	user, pass := adminUser, adminPassword
	if user == "" {
		user = s.cfg.Admin.Username
	}
	if pass == "" {
		pass = s.cfg.Admin.Password
	}
	return s.client.Admin(user, pass)
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List news sources",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		sources, err := s.admin().Sources(ctx, onlyEnabled)
		if err != nil {
			return fmt.Errorf("list sources: %w", err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, sources, func(w io.Writer) error {
			t := newTable(w, "ID", "NAME", "ENABLED", "LANG", "PRIORITY", "URL")
			for _, src := range sources {
				t.row(src.ID, src.Name, src.Enabled, src.Language, src.Priority, src.BaseURL)
			}
			return t.flush()
		})
	}),
}

var sourcesCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Add a news source",
	Example: `  newsintel admin sources create --name "Bangkok Post" --url https://www.bangkokpost.com --language en --country TH`,
	Args:    cobra.NoArgs,
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		if sourceName == "" || sourceURL == "" {
			return fmt.Errorf("--name and --url are required")
		}

		src, err := s.admin().CreateSource(ctx, sourceInput(cmd, true))
		if err != nil {
			return fmt.Errorf("create source: %w", err)
		}
		return renderSource(cmd, s, "Created", src)
	}),
}

var sourcesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a news source (only the given flags change)",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		src, err := s.admin().UpdateSource(ctx, id, sourceInput(cmd, false))
		if err != nil {
			return fmt.Errorf("update source %d: %w", id, err)
		}
		return renderSource(cmd, s, "Updated", src)
	}),
}

var sourcesToggleCmd = &cobra.Command{
	Use:   "toggle <id> <on|off>",
	Short: "Enable or disable a news source",
	Args:  cobra.ExactArgs(2),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		var enabled bool
		switch strings.ToLower(args[1]) {
		case "on", "true", "enable", "enabled":
			enabled = true
		case "off", "false", "disable", "disabled":
		default:
			return fmt.Errorf("invalid state %q (use on or off)", args[1])
		}

		src, err := s.admin().ToggleSource(ctx, id, enabled)
		if err != nil {
			return fmt.Errorf("toggle source %d: %w", id, err)
		}
		verb := "Disabled"
		if src.Enabled {
			verb = "Enabled"
		}
		return renderSource(cmd, s, verb, src)
	}),
}

var sourcesHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show a source's ingestion runs",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		history, err := s.admin().IngestionHistory(ctx, id, historyLimit)
		if err != nil {
			return fmt.Errorf("source %d history: %w", id, err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, history, func(w io.Writer) error {
			if history.Source != nil {
				if _, err := fmt.Fprintf(w, "%s\n\n", history.Source.Name); err != nil {
					return err
				}
			}
			t := newTable(w, "RUN", "AT", "ARTICLES", "OK", "NOTES")
			for _, e := range history.History {
				t.row(e.ID, str(e.LastRunAt), e.ArticlesIngested, e.Success, truncate(str(e.Notes), 60))
			}
			return t.flush()
		})
	}),
}

var suggestionsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending suggestions with their latest evaluation",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		pending, err := s.admin().PendingSuggestions(ctx, pendingLimit)
		if err != nil {
			return fmt.Errorf("pending suggestions: %w", err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, pending, func(w io.Writer) error {
			return suggestionTable(w, pending)
		})
	}),
}

var suggestionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show suggestion counts by status",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		stats, err := s.admin().Stats(ctx)
		if err != nil {
			return fmt.Errorf("suggestion stats: %w", err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, stats, func(w io.Writer) error {
			p := &printer{w: w}
			p.printf("Total suggestions: %d\n\n", stats.Total)
			p.printf("  pending   %d\n", stats.ByStatus.Pending)
			p.printf("  approved  %d\n", stats.ByStatus.Approved)
			p.printf("  rejected  %d\n", stats.ByStatus.Rejected)
			p.printf("  merged    %d\n", stats.ByStatus.Merged)
			if p.err != nil || len(stats.TopPending) == 0 {
				return p.err
			}
			p.printf("\nTop pending:\n")
			if p.err != nil {
				return p.err
			}
			return suggestionTable(w, stats.TopPending)
		})
	}),
}

var suggestionsEvaluationsCmd = &cobra.Command{
	Use:   "evaluations <id>",
	Short: "Show all evaluations of a suggestion, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		list, err := s.admin().Evaluations(ctx, id)
		if err != nil {
			return fmt.Errorf("suggestion %d evaluations: %w", id, err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, list, func(w io.Writer) error {
			p := &printer{w: w}
			if len(list.Evaluations) == 0 {
				p.printf("No evaluations yet\n")
			}
			for _, e := range list.Evaluations {
				evaluationText(p, e)
			}
			return p.err
		})
	}),
}

var suggestionsProcessCmd = &cobra.Command{
	Use:   "process <id>",
	Short: "Run the automated evaluation of a suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: reviewCommand(func(ctx context.Context, a *api.Admin, id int64) (model.ReviewResult, error) {
		return a.ProcessSuggestion(ctx, id)
	}),
}

var suggestionsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a suggestion and start tracking the keyword",
	Args:  cobra.ExactArgs(1),
	RunE: reviewCommand(func(ctx context.Context, a *api.Admin, id int64) (model.ReviewResult, error) {
		return a.ApproveSuggestion(ctx, id, triggerSearch)
	}),
}

var suggestionsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: reviewCommand(func(ctx context.Context, a *api.Admin, id int64) (model.ReviewResult, error) {
		return a.RejectSuggestion(ctx, id, rejectReason)
	}),
}

func reviewCommand(do func(ctx context.Context, a *api.Admin, id int64) (model.ReviewResult, error)) func(*cobra.Command, []string) error {
	return run(func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		res, err := do(ctx, s.admin(), id)
		if err != nil {
			return fmt.Errorf("%s suggestion %d: %w", cmd.Name(), id, err)
		}
		return render(cmd.OutOrStdout(), s.cfg.Output.Format, res, func(w io.Writer) error {
			p := &printer{w: w}
			msg := res.Message
			if msg == "" {
				msg = "Done"
			}
			p.printf("✓ %s\n", msg)
			if res.Keyword != nil {
				p.printf("  keyword #%d: %s\n", res.Keyword.ID, res.Keyword.KeywordEN)
			}
			if decision, ok := res.Result["decision"]; ok {
				p.printf("  decision: %v\n", decision)
			}
			return p.err
		})
	})
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminSourcesCmd, adminSuggestionsCmd)
	adminSourcesCmd.AddCommand(sourcesListCmd, sourcesCreateCmd, sourcesUpdateCmd, sourcesToggleCmd, sourcesHistoryCmd)
	adminSuggestionsCmd.AddCommand(suggestionsPendingCmd, suggestionsStatsCmd, suggestionsEvaluationsCmd,
		suggestionsProcessCmd, suggestionsApproveCmd, suggestionsRejectCmd)

	adminCmd.PersistentFlags().StringVar(&adminUser, "user", "", "admin username")
	adminCmd.PersistentFlags().StringVar(&adminPassword, "password", "", "admin password (prefer NEWSINTEL_ADMIN_PASSWORD)")

	sourcesListCmd.Flags().BoolVar(&onlyEnabled, "enabled", false, "only enabled sources")
	sourcesHistoryCmd.Flags().IntVar(&historyLimit, "limit", api.DefaultIngestionLimit, "maximum runs")

	for _, c := range []*cobra.Command{sourcesCreateCmd, sourcesUpdateCmd} {
		f := c.Flags()
		f.StringVar(&sourceName, "name", "", "source name")
		f.StringVar(&sourceURL, "url", "", "base URL")
		f.StringVar(&sourceLanguage, "language", "", "article language")
		f.StringVar(&sourceCountry, "country", "", "country code")
		f.StringVar(&sourceParser, "parser", "", "parser name")
		f.IntVar(&sourcePriority, "priority", 0, "ingestion priority")
		f.StringSliceVar(&sourceTags, "tags", nil, "comma-separated tags")
		f.BoolVar(&sourceEnabled, "enabled", true, "enable ingestion")
	}

	suggestionsPendingCmd.Flags().IntVar(&pendingLimit, "limit", api.DefaultPendingLimit, "maximum suggestions")
	suggestionsApproveCmd.Flags().BoolVar(&triggerSearch, "trigger-search", true, "start collecting articles right away")
	suggestionsRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "rejection reason")
}

// sourceInput carries only the flags the user set; a new source is enabled unless told otherwise
func sourceInput(cmd *cobra.Command, create bool) model.SourceInput {
	f := cmd.Flags()
	in := model.SourceInput{Name: sourceName, BaseURL: sourceURL}
	if f.Changed("language") {
		in.Language = &sourceLanguage
	}
	if f.Changed("country") {
		in.Country = &sourceCountry
	}
	if f.Changed("parser") {
		in.Parser = &sourceParser
	}
	if f.Changed("priority") {
		in.Priority = &sourcePriority
	}
	if f.Changed("tags") {
		in.Tags = sourceTags
	}
	if f.Changed("enabled") || create {
		in.Enabled = &sourceEnabled
	}
	return in
}

func renderSource(cmd *cobra.Command, s *session, verb string, src model.NewsSource) error {
	return render(cmd.OutOrStdout(), s.cfg.Output.Format, src, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "✓ %s source #%d %s (%s)\n", verb, src.ID, src.Name, src.BaseURL)
		return err
	})
}
