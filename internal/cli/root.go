package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/newsintel/internal/api"
	"github.com/ppiankov/newsintel/internal/model"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
	noCache bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "newsintel",
	Short: "newsintel - query client for the News Intelligence Hub",
	Long: `newsintel is a command-line client for the News Intelligence Hub API.

It searches tracked keywords and articles, shows sentiment and sentiment
timelines, compares keywords side by side, manages keyword suggestions,
uploads documents and administers news sources.

Responses are cached locally and, when cache.persist is set, survive
restarts so the last known data is shown while fresh data loads.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "newsintel %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.newsintel/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&noCache, "no-cache", false, "disable the response cache")
	flags.StringP("output", "o", "text", "output format (text, json, yaml)")
	flags.String("base-url", "", "API base URL (default: http://localhost:8000)")
	flags.String("lang", "", "display language (en, th, de, da)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("output.format", flags.Lookup("output"))
	_ = viper.BindPFlag("api.base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("api.language", flags.Lookup("lang"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".newsintel"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// NEWSINTEL_API_BASE_URL, NEWSINTEL_ADMIN_PASSWORD, ...
	viper.SetEnvPrefix("NEWSINTEL")
	viper.SetEnvKeyReplacer(envReplacer())
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func envReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// registerDefaults makes every config key known to viper so env
// variables resolve even when no config file sets them.
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults(v, "", tree)

	// omitted from the marshalled defaults when empty
	for _, key := range optionalKeys {
		v.SetDefault(key, "")
	}
	return nil
}

var optionalKeys = []string{
	"admin.username",
	"admin.password",
	"llm.api_key",
	"llm.base_url",
	"http.http_proxy",
	"http.https_proxy",
	"http.no_proxy",
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok && len(sub) > 0 {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, value)
	}
}

// loadConfig resolves the effective configuration
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	switch cfg.Output.Format {
	case "text", "json", "yaml":
	default:
		return nil, fmt.Errorf("unsupported output format %q (supported: text, json, yaml)", cfg.Output.Format)
	}
	return cfg, nil
}

// newLogger builds the zap logger; --verbose switches to debug level
func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.DisableStacktrace = true
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

// session is what a command needs to talk to the API
type session struct {
	cfg    *model.Config
	logger *zap.Logger
	client *api.Client
}

func newSession() (*session, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Output.Verbose)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	client, err := api.New(cfg, api.WithLogger(logger))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	logger.Debug("session ready",
		zap.String("base_url", client.BaseURL()),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.String("persist", string(cfg.Cache.Persist)))

	return &session{cfg: cfg, logger: logger, client: client}, nil
}

func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("close client", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// language returns the configured display language
func (s *session) language() model.Language {
	return model.ParseLanguage(s.cfg.API.Language)
}

// run wraps a command body with a session
func run(fn func(ctx context.Context, cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return fn(ctx, cmd, args, s)
	}
}
