package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/newsintel/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage newsintel configuration",
	Long: `Manage newsintel configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (NEWSINTEL_*, e.g. NEWSINTEL_API_BASE_URL)
3. Config file (~/.newsintel/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after defaults, config file, env vars and flags are applied.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(redacted(cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(yamlData)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.newsintel/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configPath, err := writeDefaultConfig(filepath.Join(home, ".newsintel"))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "✓ Created default configuration: %s\n", configPath)
		_, _ = fmt.Fprintf(out, "\nTo view the configuration:\n")
		_, _ = fmt.Fprintf(out, "  newsintel config show\n")
		_, _ = fmt.Fprintf(out, "\nTo customize, edit the file with your preferred editor:\n")
		_, _ = fmt.Fprintf(out, "  $EDITOR %s\n\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// writeDefaultConfig creates configDir/config.yaml and refuses to overwrite it
func writeDefaultConfig(configDir string) (path string, err error) {
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s\nUse 'newsintel config show' to view it, or delete it first to recreate", configPath)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("error creating config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close config file: %w", closeErr)
		}
	}()

	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(f, format, a...)
	}

	printf("# newsintel configuration file\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (NEWSINTEL_*)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")

	yamlData, mErr := yaml.Marshal(model.DefaultConfig())
	if mErr != nil {
		return "", fmt.Errorf("error marshaling config: %w", mErr)
	}
	if err == nil {
		_, err = f.Write(yamlData)
	}

	printf("\n# Secrets are best kept in the environment:\n")
	printf("#   export NEWSINTEL_ADMIN_USERNAME=admin\n")
	printf("#   export NEWSINTEL_ADMIN_PASSWORD=...\n")
	printf("#   export OPENAI_API_KEY=sk-...\n")
	printf("#   export GEMINI_API_KEY=...\n")
	printf("#   export OLLAMA_BASE_URL=http://localhost:11434\n")

	if err != nil {
		return "", fmt.Errorf("error writing config: %w", err)
	}
	return configPath, nil
}

// redacted hides secrets before display
func redacted(cfg *model.Config) *model.Config {
	out := *cfg
	if out.Admin.Password != "" {
		out.Admin.Password = "********"
	}
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "********"
	}
	return &out
}
