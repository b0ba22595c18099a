package main

import (
	"os"

	"github.com/spf13/cobra"

	"shadowscan/internal/logging"
	"shadowscan/internal/version"
)

var (
	// repoRootFlag is the CLI --repo flag value.
	repoRootFlag string
	// outputFormatFlag is the CLI --format flag value, shared by every
	// subcommand that renders a result.
	outputFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "shadowscan",
	Short: "Quantify shadow logic in front-end code",
	Long: `shadowscan scans a JavaScript/TypeScript front-end for "shadow logic" —
implicit, undocumented business rules buried in components, hooks, and
plain functions — and reports hotspots, duplicated-logic clusters, and
rule findings ranked by how much review attention each region has had.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("shadowscan version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoRootFlag, "repo", "",
		"Repository root to scan (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&outputFormatFlag, "format", "human",
		"Output format: json, human, or pr-comment")
}

// resolveRepoRoot determines the effective repository root.
// Precedence: --repo flag > SHADOWSCAN_REPO env var > current directory.
func resolveRepoRoot() (string, error) {
	if repoRootFlag != "" {
		return repoRootFlag, nil
	}
	if env := os.Getenv("SHADOWSCAN_REPO"); env != "" {
		return env, nil
	}
	return os.Getwd()
}

// resolveOutputFormat determines the effective output format.
// Precedence: --format flag > SHADOWSCAN_FORMAT env var > "human".
func resolveOutputFormat() OutputFormat {
	if rootCmd.PersistentFlags().Changed("format") {
		return OutputFormat(outputFormatFlag)
	}
	if env := os.Getenv("SHADOWSCAN_FORMAT"); env != "" {
		return OutputFormat(env)
	}
	return OutputFormat(outputFormatFlag)
}

func newLogger(format OutputFormat) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.ParseFormat(string(format)),
		Level:  resolveLogLevel(),
	})
}

// resolveLogLevel determines the logger's minimum level from the
// SHADOWSCAN_LOG_LEVEL env var, defaulting to InfoLevel. The Logging
// section of the repo's .shadowscan/config.json is not consulted: the
// env var and this default are the only sources of the level.
func resolveLogLevel() logging.LogLevel {
	if env := os.Getenv("SHADOWSCAN_LOG_LEVEL"); env != "" {
		return logging.ParseLevel(env)
	}
	return logging.InfoLevel
}
