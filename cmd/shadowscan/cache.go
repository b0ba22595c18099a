package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the scan cache",
	Long:  "View cache statistics or evict expired cache entries for the current repository.",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Run:   runCacheStats,
}

var cacheGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Evict expired cache entries",
	Run:   runCacheGC,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheGCCmd)
	rootCmd.AddCommand(cacheCmd)
}

type cacheStatsResponseCLI struct {
	Counts     map[string]int64 `json:"counts"`
	TotalBytes int64            `json:"totalBytes"`
}

type cacheGCResponseCLI struct {
	Evicted  int64 `json:"evicted"`
	Duration int64 `json:"durationMs"`
}

func runCacheStats(cmd *cobra.Command, args []string) {
	format := resolveOutputFormat()
	logger := newLogger(format)

	repoRoot := mustGetRepoRoot()
	c, closeCache := mustOpenCache(repoRoot, logger)
	defer closeCache()

	stats, err := c.GetStats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching cache stats: %v\n", err)
		os.Exit(1)
	}

	resp := &cacheStatsResponseCLI{Counts: stats.Counts, TotalBytes: stats.TotalBytes}
	output, err := FormatResponse(resp, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)
}

func runCacheGC(cmd *cobra.Command, args []string) {
	start := time.Now()
	format := resolveOutputFormat()
	logger := newLogger(format)

	repoRoot := mustGetRepoRoot()
	c, closeCache := mustOpenCache(repoRoot, logger)
	defer closeCache()

	evicted, err := c.CleanupExpired()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error cleaning up cache: %v\n", err)
		os.Exit(1)
	}

	resp := &cacheGCResponseCLI{Evicted: evicted, Duration: time.Since(start).Milliseconds()}
	output, err := FormatResponse(resp, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	logger.Debug("cache gc completed", map[string]interface{}{
		"evicted":  evicted,
		"duration": resp.Duration,
	})
}

func formatCacheStatsHuman(r *cacheStatsResponseCLI) string {
	var b strings.Builder
	fmt.Fprintln(&b, "Cache statistics")
	fmt.Fprintln(&b, strings.Repeat("─", 40))
	fmt.Fprintf(&b, "  total bytes: %d\n", r.TotalBytes)

	families := make([]string, 0, len(r.Counts))
	for family := range r.Counts {
		families = append(families, family)
	}
	sort.Strings(families)
	for _, family := range families {
		fmt.Fprintf(&b, "  %-20s %d\n", family, r.Counts[family])
	}
	return b.String()
}

func formatCacheGCHuman(r *cacheGCResponseCLI) string {
	return fmt.Sprintf("evicted %d expired cache entries (%dms)\n", r.Evicted, r.Duration)
}
