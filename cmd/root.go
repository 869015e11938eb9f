package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/copilot-session/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	dbPath     string
	logFormat  string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"

	// cfg is loaded once per invocation by the root PersistentPreRunE
	cfg = internal.DefaultConfig()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "copilot-session",
	Short: "Archive and search Copilot chat sessions",
	Long: `A CLI tool to build a searchable archive of Copilot chat sessions.

This tool discovers chat sessions written by VS Code (stable and Insiders)
and by the Copilot CLI, normalizes them, and stores them in a local SQLite
database with full-text search.

Features:
  • Incremental scanning by file fingerprint
  • Full-text search with role:, workspace:, title: and edition: filters
  • View sessions as rendered markdown
  • Export in multiple formats (JSONL, Markdown, YAML, JSON)
  • Rebuild the searchable tables from the stored raw payloads

Quick Start:
  copilot-session scan                       # Import sessions
  copilot-session search "router role:user"  # Search messages
  copilot-session show <session-id>          # View a session
  copilot-session export --format md         # Export as Markdown`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := internal.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if dbPath != "" {
			cfg.Database = dbPath
		}
		if logFormat != "" {
			cfg.LogFormat = logFormat
		}

		internal.SetLogLevel(internal.ParseLogLevel(cfg.LogLevel))
		if verbose {
			internal.SetVerbose(true)
		}
		internal.SetLogOutput(cmd.ErrOrStderr(), cfg.LogFormat)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the configured session database
func openStore() (*internal.Store, error) {
	store, err := internal.OpenStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/copilot-session/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Session database (default ~/.copilot-session/sessions.db)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
