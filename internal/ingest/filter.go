package ingest

import (
	"path/filepath"
	"strings"

	"shadowscan/internal/config"
)

// IsIncluded reports whether path should be scanned: its extension is
// in cfg.Extensions and no configured exclude fragment appears
// anywhere in its normalized (forward-slash) form (§4.1).
func IsIncluded(path string, cfg config.IngestConfig) bool {
	normalized := filepath.ToSlash(path)

	ext := filepath.Ext(normalized)
	if !containsString(cfg.Extensions, ext) {
		return false
	}

	for _, fragment := range cfg.ExcludeFragments {
		if strings.Contains(normalized, fragment) {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Intersect applies IsIncluded to a caller-supplied path set, the
// incremental-scan contract of §4.1: "Ingest intersects that with the
// include filter."
func Intersect(paths []string, cfg config.IngestConfig) []string {
	var result []string
	for _, p := range paths {
		if IsIncluded(p, cfg) {
			result = append(result, p)
		}
	}
	return result
}
