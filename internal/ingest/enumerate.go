package ingest

import (
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"shadowscan/internal/config"
)

// Enumerate walks root and returns every included FEL file's
// repo-relative, forward-slash path in stable lexicographic order
// (§4.1). A path that disappears between enumeration and read is
// dropped silently; a path that cannot be decoded as UTF-8 is skipped
// and returned as a Warning instead of failing the scan.
func Enumerate(root string, cfg config.IngestConfig) ([]string, []Warning, error) {
	var paths []string
	var warnings []Warning

	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			// The path vanished or became unreadable mid-walk; drop it.
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if isExcludedDir(rel, cfg) {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsIncluded(rel, cfg) {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			// Disappeared between enumeration and read: dropped silently.
			return nil
		}
		if !utf8.Valid(content) {
			warnings = append(warnings, Warning{Path: rel, Message: "not valid UTF-8, skipped"})
			return nil
		}

		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, warnings, err
	}

	sort.Strings(paths)
	return paths, warnings, nil
}

func isExcludedDir(rel string, cfg config.IngestConfig) bool {
	if rel == "." {
		return false
	}
	for _, fragment := range cfg.ExcludeFragments {
		if rel == fragment || filepath.Base(rel) == fragment {
			return true
		}
	}
	return false
}
