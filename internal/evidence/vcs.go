package evidence

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// VCS is the version-control boundary Evidence consumes (§6.5). It is
// deliberately narrow — two read-only operations — so a test fake can
// stand in without a real git repository.
type VCS interface {
	// Blame returns one record per commit that last touched a line in
	// [startLine, endLine] (1-indexed, inclusive) of path.
	Blame(ctx context.Context, repoRoot, path string, startLine, endLine int) ([]BlameRecord, error)
	// Log returns commits touching path at or after since, most recent first.
	Log(ctx context.Context, repoRoot, path string, since time.Time) ([]LogRecord, error)
}

// GitVCS implements VCS by shelling out to the git binary. The
// subprocess plumbing itself is an I/O facade outside the Engine's
// scored core (§1); only the two operations above are load-bearing.
type GitVCS struct{}

// Blame runs `git blame --porcelain -L start,end` and parses its
// commit/author/author-time header lines.
func (GitVCS) Blame(ctx context.Context, repoRoot, path string, startLine, endLine int) ([]BlameRecord, error) {
	args := []string{"blame", "--porcelain", "-L", fmt.Sprintf("%d,%d", startLine, endLine), "--", path}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoRoot

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git blame %s:%d-%d: %w", path, startLine, endLine, err)
	}
	return parseBlamePorcelain(output)
}

// Log runs `git log --since=<since> --pretty=format:<sha>\x1f<author>\x1f<unix-time>\x1f<subject>`.
func (GitVCS) Log(ctx context.Context, repoRoot, path string, since time.Time) ([]LogRecord, error) {
	args := []string{
		"log",
		"--since=" + since.UTC().Format(time.RFC3339),
		"--pretty=format:%H\x1f%ae\x1f%at\x1f%s",
		"--",
		path,
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoRoot

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log %s since %s: %w", path, since, err)
	}
	return parseLogFormat(output)
}

func parseBlamePorcelain(output []byte) ([]BlameRecord, error) {
	order := make([]string, 0)
	bySHA := make(map[string]*BlameRecord)

	scanner := bufio.NewScanner(bytes.NewReader(output))
	var current *BlameRecord

	for scanner.Scan() {
		line := scanner.Text()

		if len(line) >= 40 && isHexString(line[:40]) {
			sha := line[:40]
			if existing, ok := bySHA[sha]; ok {
				current = existing
				continue
			}
			rec := &BlameRecord{CommitSHA: sha}
			bySHA[sha] = rec
			order = append(order, sha)
			current = rec
			continue
		}
		if current == nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "author-mail "):
			mail := strings.Trim(strings.TrimPrefix(line, "author-mail "), "<>")
			current.Author = normalizeAuthorIdentity(mail)
		case strings.HasPrefix(line, "author-time "):
			secs, err := strconv.ParseInt(strings.TrimPrefix(line, "author-time "), 10, 64)
			if err == nil {
				current.Timestamp = time.Unix(secs, 0).UTC()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	records := make([]BlameRecord, 0, len(order))
	for _, sha := range order {
		records = append(records, *bySHA[sha])
	}
	return records, nil
}

func parseLogFormat(output []byte) ([]LogRecord, error) {
	var records []LogRecord
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\x1f")
		if len(fields) != 4 {
			continue
		}
		secs, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			continue
		}
		records = append(records, LogRecord{
			CommitSHA: fields[0],
			Author:    normalizeAuthorIdentity(fields[1]),
			Timestamp: time.Unix(secs, 0).UTC(),
			Message:   fields[3],
		})
	}
	return records, scanner.Err()
}

// normalizeAuthorIdentity reduces an e-mail address to its normalized
// local-part, per §4.3's author-identity rule.
func normalizeAuthorIdentity(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	return strings.ToLower(local)
}

func isHexString(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
