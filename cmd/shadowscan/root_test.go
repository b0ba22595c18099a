package main

import "testing"

func resetRootFlags(t *testing.T) {
	t.Helper()
	repoRootFlag = ""
	outputFormatFlag = "human"
	_ = rootCmd.PersistentFlags().Set("format", "human")
	rootCmd.PersistentFlags().Lookup("format").Changed = false
}

func TestResolveRepoRoot_FlagWins(t *testing.T) {
	resetRootFlags(t)
	t.Setenv("SHADOWSCAN_REPO", "/from/env")
	repoRootFlag = "/from/flag"

	root, err := resolveRepoRoot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root != "/from/flag" {
		t.Errorf("resolveRepoRoot() = %q, want /from/flag", root)
	}
}

func TestResolveRepoRoot_FallsBackToEnv(t *testing.T) {
	resetRootFlags(t)
	t.Setenv("SHADOWSCAN_REPO", "/from/env")

	root, err := resolveRepoRoot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root != "/from/env" {
		t.Errorf("resolveRepoRoot() = %q, want /from/env", root)
	}
}

func TestResolveRepoRoot_FallsBackToCwd(t *testing.T) {
	resetRootFlags(t)
	t.Setenv("SHADOWSCAN_REPO", "")

	root, err := resolveRepoRoot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root == "" {
		t.Error("resolveRepoRoot() returned empty string")
	}
}

func TestResolveOutputFormat_FlagWins(t *testing.T) {
	resetRootFlags(t)
	t.Setenv("SHADOWSCAN_FORMAT", "json")
	outputFormatFlag = "pr-comment"
	if err := rootCmd.PersistentFlags().Set("format", "pr-comment"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := resolveOutputFormat(); got != FormatPRComment {
		t.Errorf("resolveOutputFormat() = %q, want %q", got, FormatPRComment)
	}
}

func TestResolveOutputFormat_FallsBackToEnv(t *testing.T) {
	resetRootFlags(t)
	t.Setenv("SHADOWSCAN_FORMAT", "json")

	if got := resolveOutputFormat(); got != FormatJSON {
		t.Errorf("resolveOutputFormat() = %q, want %q", got, FormatJSON)
	}
}

func TestResolveOutputFormat_DefaultsToHuman(t *testing.T) {
	resetRootFlags(t)
	t.Setenv("SHADOWSCAN_FORMAT", "")

	if got := resolveOutputFormat(); got != FormatHuman {
		t.Errorf("resolveOutputFormat() = %q, want %q", got, FormatHuman)
	}
}

func TestNewLogger_JSONFormatSelectsJSONLogger(t *testing.T) {
	logger := newLogger(FormatJSON)
	if logger == nil {
		t.Fatal("newLogger returned nil")
	}
}
