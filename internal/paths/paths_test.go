package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "shadowscan-paths-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	testFile := filepath.Join(tempDir, "subdir", "test.ts")
	if err := os.MkdirAll(filepath.Dir(testFile), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("export const x = 1;"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	canonical, err := CanonicalizePath(testFile, tempDir)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}

	expected := "subdir/test.ts"
	if canonical != expected {
		t.Errorf("Expected %s, got %s", expected, canonical)
	}
}

func TestCanonicalizePath_NonExistentFile(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "shadowscan-paths-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	missing := filepath.Join(tempDir, "src", "missing.ts")
	canonical, err := CanonicalizePath(missing, tempDir)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if canonical != "src/missing.ts" {
		t.Errorf("Expected src/missing.ts, got %s", canonical)
	}
}

func TestNormalizePath(t *testing.T) {
	result := NormalizePath("path/to/file")
	expected := "path/to/file"
	if result != expected {
		t.Errorf("NormalizePath(path/to/file): expected %s, got %s", expected, result)
	}
}

func TestJoinRepoPath(t *testing.T) {
	result := JoinRepoPath("/repo/root", "path/to/file.ts")
	expected := filepath.Join("/repo/root", "path", "to", "file.ts")
	if result != expected {
		t.Errorf("JoinRepoPath: expected %s, got %s", expected, result)
	}
}

func TestIsWithinRepo(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "shadowscan-paths-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	testFile := filepath.Join(tempDir, "subdir", "test.ts")
	if err := os.MkdirAll(filepath.Dir(testFile), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(testFile, []byte("export const x = 1;"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !IsWithinRepo(testFile, tempDir) {
		t.Error("Expected file to be within repo")
	}

	outsideFile := filepath.Join(os.TempDir(), "outside.ts")
	if IsWithinRepo(outsideFile, tempDir) {
		t.Error("Expected file outside repo to return false")
	}
}

func TestResolveDataDir_DefaultsToRepoLocal(t *testing.T) {
	original := os.Getenv(DataDirEnvVar)
	_ = os.Unsetenv(DataDirEnvVar)
	t.Cleanup(func() { _ = os.Setenv(DataDirEnvVar, original) })

	dir, err := ResolveDataDir("/my/repo")
	if err != nil {
		t.Fatalf("ResolveDataDir failed: %v", err)
	}
	expected := filepath.Join("/my/repo", ".shadowscan")
	if dir != expected {
		t.Errorf("Expected %s, got %s", expected, dir)
	}
}

func TestResolveDataDir_HonorsEnvVar(t *testing.T) {
	original := os.Getenv(DataDirEnvVar)
	tempDir := t.TempDir()
	_ = os.Setenv(DataDirEnvVar, tempDir)
	t.Cleanup(func() { _ = os.Setenv(DataDirEnvVar, original) })

	dir1, err := ResolveDataDir("/repo/one")
	if err != nil {
		t.Fatalf("ResolveDataDir failed: %v", err)
	}
	dir2, err := ResolveDataDir("/repo/two")
	if err != nil {
		t.Fatalf("ResolveDataDir failed: %v", err)
	}

	if !strings.HasPrefix(dir1, filepath.Join(tempDir, "repos")) {
		t.Errorf("Expected dir1 under %s, got %s", filepath.Join(tempDir, "repos"), dir1)
	}
	if dir1 == dir2 {
		t.Errorf("Expected different repos to hash to different data dirs, got %s == %s", dir1, dir2)
	}

	// Resolving the same repo root twice must be stable.
	dir1Again, err := ResolveDataDir("/repo/one")
	if err != nil {
		t.Fatalf("ResolveDataDir failed: %v", err)
	}
	if dir1 != dir1Again {
		t.Errorf("Expected stable hash, got %s != %s", dir1, dir1Again)
	}
}

func TestEnsureDataDir_CreatesDirectory(t *testing.T) {
	repoRoot := t.TempDir()

	dir, err := EnsureDataDir(repoRoot)
	if err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected a directory")
	}
}
