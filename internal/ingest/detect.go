package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"shadowscan/internal/config"
)

// DetectChanges finds files changed since commit sinceCommit, trying
// git first and falling back to a full content-hash walk if git is
// unavailable or the commit is unknown to the local history.
func DetectChanges(ctx context.Context, repoRoot, sinceCommit string, cfg config.IngestConfig) ([]ChangedFile, error) {
	if sinceCommit != "" && isGitRepo(ctx, repoRoot) {
		changes, err := detectGitChanges(ctx, repoRoot, sinceCommit, cfg)
		if err == nil {
			return changes, nil
		}
	}
	return detectHashChanges(repoRoot, cfg)
}

func isGitRepo(ctx context.Context, repoRoot string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = repoRoot
	return cmd.Run() == nil
}

// detectGitChanges runs `git diff --name-status -z` between
// sinceCommit and HEAD, NUL-parsing the output so paths containing
// spaces or unusual characters survive intact.
func detectGitChanges(ctx context.Context, repoRoot, sinceCommit string, cfg config.IngestConfig) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--name-status", "-z", sinceCommit, "HEAD")
	cmd.Dir = repoRoot
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}

	changes := parseGitDiffNUL(output, cfg)

	untracked := exec.CommandContext(ctx, "git", "ls-files", "-z", "--others", "--exclude-standard")
	untracked.Dir = repoRoot
	untrackedOut, _ := untracked.Output()
	for _, path := range bytes.Split(untrackedOut, []byte{0}) {
		p := string(path)
		if p != "" && IsIncluded(p, cfg) {
			changes = append(changes, ChangedFile{Path: p, ChangeType: ChangeAdded})
		}
	}

	return deduplicate(changes), nil
}

// parseGitDiffNUL parses `STATUS\0PATH\0` pairs, or
// `STATUS\0OLDPATH\0NEWPATH\0` for renames and copies.
func parseGitDiffNUL(output []byte, cfg config.IngestConfig) []ChangedFile {
	var changes []ChangedFile
	parts := bytes.Split(output, []byte{0})

	for i := 0; i < len(parts); {
		if len(parts[i]) == 0 {
			i++
			continue
		}
		status := string(parts[i])
		if i+1 >= len(parts) {
			break
		}

		isRenameOrCopy := strings.HasPrefix(status, "R") || strings.HasPrefix(status, "C")
		var oldPath, newPath string
		if isRenameOrCopy {
			oldPath = string(parts[i+1])
			i += 2
			if i >= len(parts) {
				continue
			}
			newPath = string(parts[i])
			i++
		} else {
			newPath = string(parts[i+1])
			oldPath = newPath
			i += 2
		}

		switch {
		case status == "A":
			if IsIncluded(newPath, cfg) {
				changes = append(changes, ChangedFile{Path: newPath, ChangeType: ChangeAdded})
			}
		case status == "M":
			if IsIncluded(newPath, cfg) {
				changes = append(changes, ChangedFile{Path: newPath, ChangeType: ChangeModified})
			}
		case status == "D":
			if IsIncluded(oldPath, cfg) {
				changes = append(changes, ChangedFile{Path: oldPath, ChangeType: ChangeDeleted})
			}
		case isRenameOrCopy:
			oldIncluded, newIncluded := IsIncluded(oldPath, cfg), IsIncluded(newPath, cfg)
			switch {
			case strings.HasPrefix(status, "R") && oldIncluded && newIncluded:
				changes = append(changes, ChangedFile{Path: newPath, OldPath: oldPath, ChangeType: ChangeRenamed})
			case strings.HasPrefix(status, "R") && oldIncluded && !newIncluded:
				changes = append(changes, ChangedFile{Path: oldPath, ChangeType: ChangeDeleted})
			case newIncluded:
				changes = append(changes, ChangedFile{Path: newPath, ChangeType: ChangeAdded})
			}
		default:
			if IsIncluded(newPath, cfg) {
				changes = append(changes, ChangedFile{Path: newPath, ChangeType: ChangeModified})
			}
		}
	}
	return changes
}

// detectHashChanges walks the tree and reports every included file as
// modified, letting the caller's own prior-hash comparison (outside
// this package, against cached Unit-features keys) decide what
// actually needs reprocessing. It is the fallback when git is
// unavailable.
func detectHashChanges(repoRoot string, cfg config.IngestConfig) ([]ChangedFile, error) {
	paths, _, err := Enumerate(repoRoot, cfg)
	if err != nil {
		return nil, err
	}

	changes := make([]ChangedFile, 0, len(paths))
	for _, p := range paths {
		hash, err := hashFile(filepath.Join(repoRoot, p))
		if err != nil {
			continue
		}
		changes = append(changes, ChangedFile{Path: p, ChangeType: ChangeModified, Hash: hash})
	}
	return changes, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func deduplicate(changes []ChangedFile) []ChangedFile {
	seen := make(map[string]int)
	var result []ChangedFile
	for _, c := range changes {
		if idx, ok := seen[c.Path]; ok {
			result[idx] = c
			continue
		}
		seen[c.Path] = len(result)
		result = append(result, c)
	}
	return result
}
