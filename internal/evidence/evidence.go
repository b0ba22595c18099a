package evidence

import (
	"context"
	"regexp"
	"sort"
	"time"

	"shadowscan/internal/logging"
)

// Window durations for the touch-count features (§4.3's configurable
// default window).
const (
	Window30Days = 30 * 24 * time.Hour
	Window90Days = 90 * 24 * time.Hour
)

// Compute derives Evidence for a Unit's span [startLine, endLine] in
// path, as of scanTime. A VCS failure degrades to zero Evidence and is
// returned as a non-fatal error the caller should record as a scan
// warning (§4.3, §6.5).
func Compute(ctx context.Context, vcs VCS, logger *logging.Logger, repoRoot, path string, startLine, endLine int, scanTime time.Time) (Evidence, error) {
	blame, err := vcs.Blame(ctx, repoRoot, path, startLine, endLine)
	if err != nil {
		logger.Warn("blame unavailable, evidence degraded to zero", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return zeroEvidence(), err
	}
	if len(blame) == 0 {
		return zeroEvidence(), nil
	}

	since := scanTime.Add(-Window90Days)
	commits, err := vcs.Log(ctx, repoRoot, path, since)
	if err != nil {
		logger.Warn("log unavailable, evidence degraded to zero", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return zeroEvidence(), err
	}

	return scoreEvidence(blame, commits, scanTime), nil
}

func scoreEvidence(blame []BlameRecord, commits []LogRecord, scanTime time.Time) Evidence {
	authors := make(map[string]bool)
	var earliest, latest time.Time
	for i, b := range blame {
		authors[b.Author] = true
		if i == 0 || b.Timestamp.Before(earliest) {
			earliest = b.Timestamp
		}
		if i == 0 || b.Timestamp.After(latest) {
			latest = b.Timestamp
		}
	}

	touchedAfterCreation := latest.After(earliest.Add(24 * time.Hour))
	if len(authors) >= 2 {
		// §3 invariant: distinct-authors >= 2 implies touched-after-creation.
		touchedAfterCreation = true
	}

	cutoff30 := scanTime.Add(-Window30Days)
	cutoff90 := scanTime.Add(-Window90Days)
	touch30, touch90 := 0, 0
	signalSet := make(map[string]bool)
	for _, c := range commits {
		if !c.Timestamp.Before(cutoff90) {
			touch90++
			if !c.Timestamp.Before(cutoff30) {
				touch30++
			}
		}
		for _, signal := range matchCommitSignals(c.Message) {
			signalSet[signal] = true
		}
	}

	signals := make([]string, 0, len(signalSet))
	for s := range signalSet {
		signals = append(signals, s)
	}
	sort.Strings(signals)

	score := 0
	if len(authors) >= 2 {
		score += 30
	}
	if touchedAfterCreation {
		score += 20
	}
	if touch90 >= 2 {
		score += 20
	}
	if signalSet["refactor"] || signalSet["test"] || signalSet["type"] {
		score += 10
	}
	if score > 100 {
		score = 100
	}

	return Evidence{
		DistinctAuthors:      len(authors),
		TouchedAfterCreation: touchedAfterCreation,
		TouchCount30d:        touch30,
		TouchCount90d:        touch90,
		CommitSignals:        signals,
		ReviewEvidenceScore:  score,
	}
}

var commitSignalPatterns = buildCommitSignalPatterns()

func buildCommitSignalPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(CommitSignalVocabulary))
	for _, word := range CommitSignalVocabulary {
		patterns[word] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	}
	return patterns
}

// matchCommitSignals returns the distinct vocabulary words matched in
// message by case-insensitive whole-word match; duplicates within a
// single message count once (§4.3).
func matchCommitSignals(message string) []string {
	var matched []string
	for _, word := range CommitSignalVocabulary {
		if commitSignalPatterns[word].MatchString(message) {
			matched = append(matched, word)
		}
	}
	return matched
}
