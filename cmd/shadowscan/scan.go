package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"shadowscan/internal/config"
	"shadowscan/internal/ingest"
	"shadowscan/internal/pipeline"
)

var (
	scanIncremental bool
	scanSince       string
	scanChanged     []string
	scanOutPath     string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a repository for shadow logic",
	Long: `Run the Engine over a repository's front-end code and produce a
scan report with hotspots, duplicate-logic clusters, and rule findings.

By default scan runs a full scan over every included file. Pass
--incremental with --since <commit> (or --changed <path>, repeatable)
to restrict the scan to files that changed, per the Engine's
incremental-scan contract.

Examples:
  shadowscan scan
  shadowscan scan --format=json
  shadowscan scan --incremental --since=HEAD~5
  shadowscan scan --incremental --changed=src/App.tsx --changed=src/hooks/useSync.ts`,
	Run: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanIncremental, "incremental", false, "Run an incremental scan instead of a full scan")
	scanCmd.Flags().StringVar(&scanSince, "since", "", "Commit to diff against for incremental change detection")
	scanCmd.Flags().StringArrayVar(&scanChanged, "changed", nil, "Explicit changed file (repeatable); overrides --since detection")
	scanCmd.Flags().StringVar(&scanOutPath, "out", "", "Write the report JSON to this path in addition to printing it")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) {
	start := time.Now()
	format := resolveOutputFormat()
	logger := newLogger(format)

	repoRoot := mustGetRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	ruleset := mustLoadRuleset(cfg, logger)

	c, closeCache := mustOpenCache(repoRoot, logger)
	defer closeCache()

	runner := pipeline.NewRunner(cfg, c, logger, defaultVCS(), ruleset)
	ctx := newContext()

	req := pipeline.Request{Kind: pipeline.KindFull, RepoRoot: repoRoot}
	if scanIncremental {
		req.Kind = pipeline.KindIncremental
		req.ChangedFiles = scanChanged
		if len(scanChanged) == 0 && scanSince != "" {
			changes, err := detectSince(ctx, repoRoot, scanSince, cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error detecting changes since %s: %v\n", scanSince, err)
				os.Exit(1)
			}
			req.ChangedFiles = changes
		}
		req.CommitSHA = scanSince
	}

	result := runner.Run(ctx, req)
	if result.Err != nil {
		fmt.Fprintf(os.Stderr, "Error running scan: %v\n", result.Err)
		os.Exit(1)
	}

	output, err := FormatResponse(result.Report, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(output)

	if scanOutPath != "" {
		asJSON, err := FormatResponse(result.Report, FormatJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting report for --out: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(scanOutPath, []byte(asJSON), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", scanOutPath, err)
			os.Exit(1)
		}
	}

	logger.Debug("scan completed", map[string]interface{}{
		"scanId":   result.ScanID,
		"kind":     req.Kind,
		"duration": time.Since(start).Milliseconds(),
	})
}

// detectSince runs the upstream change-detection mechanism and returns
// the changed, non-deleted paths the Engine's incremental contract
// should intersect against the include filter.
func detectSince(ctx context.Context, repoRoot, since string, cfg *config.Config) ([]string, error) {
	changes, err := ingest.DetectChanges(ctx, repoRoot, since, cfg.Ingest)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.ChangeType == ingest.ChangeDeleted {
			continue
		}
		paths = append(paths, c.Path)
	}
	return paths, nil
}
