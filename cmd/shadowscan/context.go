package main

import (
	"context"
	"fmt"
	"os"

	"shadowscan/internal/cache"
	"shadowscan/internal/config"
	"shadowscan/internal/evidence"
	"shadowscan/internal/logging"
	"shadowscan/internal/paths"
	"shadowscan/internal/rules"
)

// mustGetRepoRoot resolves the repo root or exits on error.
func mustGetRepoRoot() string {
	root, err := resolveRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// mustLoadConfig loads the repo's configuration or exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// mustOpenCache opens the repo's scan cache or exits on error.
func mustOpenCache(repoRoot string, logger *logging.Logger) (*cache.Cache, func()) {
	dataDir, err := paths.EnsureDataDir(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving data directory: %v\n", err)
		os.Exit(1)
	}

	db, err := cache.Open(dataDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
		os.Exit(1)
	}

	c, err := cache.NewCache(db, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing cache: %v\n", err)
		os.Exit(1)
	}

	return c, func() { _ = db.Close() }
}

// mustLoadRuleset loads the configured ruleset, falling back to the
// built-in default set when no ruleset file is configured or present.
func mustLoadRuleset(cfg *config.Config, logger *logging.Logger) []rules.Rule {
	if cfg.Rules.RulesetPath == "" {
		return rules.DefaultRuleset()
	}
	ruleset, err := rules.LoadRuleset(cfg.Rules.RulesetPath)
	if os.IsNotExist(err) {
		return rules.DefaultRuleset()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ruleset: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("loaded ruleset", map[string]interface{}{"path": cfg.Rules.RulesetPath, "rules": len(ruleset)})
	return ruleset
}

func defaultVCS() evidence.VCS {
	return evidence.GitVCS{}
}
