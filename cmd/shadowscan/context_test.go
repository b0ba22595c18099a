package main

import (
	"os"
	"path/filepath"
	"testing"

	"shadowscan/internal/config"
	"shadowscan/internal/evidence"
	"shadowscan/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.InfoLevel})
}

func TestMustLoadRuleset_DefaultsWhenUnconfigured(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules.RulesetPath = ""

	ruleset := mustLoadRuleset(cfg, testLogger())
	if len(ruleset) == 0 {
		t.Fatal("expected the built-in default ruleset, got none")
	}
}

func TestMustLoadRuleset_FallsBackWhenFileMissing(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Rules.RulesetPath = filepath.Join(t.TempDir(), "does-not-exist.yaml")

	ruleset := mustLoadRuleset(cfg, testLogger())
	if len(ruleset) == 0 {
		t.Fatal("expected a fallback to the built-in default ruleset, got none")
	}
}

func TestDefaultVCS_ReturnsGitVCS(t *testing.T) {
	vcs := defaultVCS()
	if _, ok := vcs.(evidence.GitVCS); !ok {
		t.Errorf("defaultVCS() = %T, want evidence.GitVCS", vcs)
	}
}

func TestMustOpenCache_CreatesDataDirAndCache(t *testing.T) {
	repoRoot := t.TempDir()
	c, closeCache := mustOpenCache(repoRoot, testLogger())
	defer closeCache()

	if c == nil {
		t.Fatal("mustOpenCache returned a nil cache")
	}
	if _, err := os.Stat(filepath.Join(repoRoot, ".shadowscan")); err != nil {
		t.Errorf("expected .shadowscan to exist under repo root: %v", err)
	}
}
