package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"shadowscan/internal/cache"
	"shadowscan/internal/config"
	"shadowscan/internal/evidence"
	"shadowscan/internal/logging"
	"shadowscan/internal/rules"
)

func newTestRunner(t *testing.T) (*Runner, *config.Config) {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: io.Discard})

	db, err := cache.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c, err := cache.NewCache(db, logger)
	if err != nil {
		t.Fatalf("cache.NewCache() error = %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Pipeline.WorkerPoolSize = 2

	runner := NewRunner(cfg, c, logger, evidence.NewFakeVCS(), rules.DefaultRuleset())
	return runner, cfg
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const shadowyHook = `function useBrittleSync(id) {
  useEffect(() => {
    let cancelled = false;
    fetch('/api/' + id).then(function (res) {
      if (res.ok) {
        if (id) {
          if (!cancelled) {
            if (res.status === 200 || res.status === 201) {
              console.log(res);
            }
          }
        }
      }
    });
  }, []);
  return null;
}
`

const trivialFunction = `function sum(a, b) {
  return a + b;
}
`

func TestRun_FullScanProducesReport(t *testing.T) {
	runner, _ := newTestRunner(t)
	dir := t.TempDir()
	writeSource(t, dir, "src/useBrittleSync.ts", shadowyHook)
	writeSource(t, dir, "src/sum.ts", trivialFunction)

	result := runner.Run(context.Background(), Request{Kind: KindFull, RepoRoot: dir})
	if result.Err != nil {
		t.Fatalf("Run() error = %v", result.Err)
	}
	if result.Report == nil {
		t.Fatal("Run() returned a nil report")
	}
	if result.Report.Summary.TotalUnits != 2 {
		t.Errorf("TotalUnits = %d, want 2", result.Report.Summary.TotalUnits)
	}
	if len(result.Report.Hotspots) == 0 {
		t.Error("expected at least one hotspot")
	}
}

func TestRun_IncrementalScanRestrictsToChangedFiles(t *testing.T) {
	runner, _ := newTestRunner(t)
	dir := t.TempDir()
	writeSource(t, dir, "src/useBrittleSync.ts", shadowyHook)
	writeSource(t, dir, "src/sum.ts", trivialFunction)

	result := runner.Run(context.Background(), Request{
		Kind:         KindIncremental,
		RepoRoot:     dir,
		ChangedFiles: []string{"src/sum.ts"},
	})
	if result.Err != nil {
		t.Fatalf("Run() error = %v", result.Err)
	}
	if result.Report.Summary.TotalUnits != 1 {
		t.Errorf("TotalUnits = %d, want 1 (only the changed file should be ingested)", result.Report.Summary.TotalUnits)
	}
}

func TestRun_EmptyRepoProducesEmptyReport(t *testing.T) {
	runner, _ := newTestRunner(t)
	dir := t.TempDir()

	result := runner.Run(context.Background(), Request{Kind: KindFull, RepoRoot: dir})
	if result.Err != nil {
		t.Fatalf("Run() error = %v", result.Err)
	}
	if result.Report.Summary.TotalUnits != 0 {
		t.Errorf("TotalUnits = %d, want 0", result.Report.Summary.TotalUnits)
	}
	if !result.Report.Summary.Runway.InsufficientData {
		t.Error("expected insufficient-data runway on a repo's first scan")
	}
}
