package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"shadowscan/internal/cache"
	"shadowscan/internal/config"
	"shadowscan/internal/evidence"
	"shadowscan/internal/extractor"
	"shadowscan/internal/fel"
	"shadowscan/internal/ingest"
	"shadowscan/internal/logging"
	"shadowscan/internal/rules"
	"shadowscan/internal/scanerr"
	"shadowscan/internal/scanreport"
	"shadowscan/internal/scorer"
	"shadowscan/internal/similarity"
)

// parserVersion, extractorVersion and normalizerVersion seed the
// Cache's key families (§4.7); bumping one invalidates every cached
// entry of that family without waiting out the TTL.
const (
	parserVersion     = "fel-v1"
	extractorVersion  = "extractor-v1"
	normalizerVersion = "similarity-v1"
)

// Runner executes one scan request against a fixed configuration,
// cache, and version-control boundary. It holds no per-scan state
// between calls to Run, so one Runner can serve concurrent scans.
type Runner struct {
	cfg     *config.Config
	cache   *cache.Cache
	logger  *logging.Logger
	vcs     evidence.VCS
	ruleset []rules.Rule
}

// NewRunner builds a Runner. ruleset is the loaded rule file (§6.3).
func NewRunner(cfg *config.Config, c *cache.Cache, logger *logging.Logger, vcs evidence.VCS, ruleset []rules.Rule) *Runner {
	return &Runner{cfg: cfg, cache: c, logger: logger, vcs: vcs, ruleset: ruleset}
}

// Run executes req to completion, enforcing the kind-appropriate hard
// deadline (§5) and persisting a status handle in the Cache (§6.1)
// throughout. Run never panics across its boundary; the caller always
// gets a Result with either a Report or a non-nil Err.
func (r *Runner) Run(ctx context.Context, req Request) Result {
	scanID := scanreport.ScanIDSeed(req.RepoRoot, req.CommitSHA) + "-" + uuid.New().String()
	startedAt := clock()

	deadline := r.cfg.Pipeline.FullScanDeadline()
	if req.Kind == KindIncremental {
		deadline = r.cfg.Pipeline.IncrementalDeadline()
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if err := r.cache.CreateScanJob(scanID, string(req.Kind)); err != nil {
		r.logger.Warn("failed to persist scan job", map[string]interface{}{"scanId": scanID, "error": err.Error()})
	}

	report, warnings, err := r.run(ctx, scanID, req, startedAt)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = scanerr.Wrap(scanerr.KindDeadline, fmt.Sprintf("scan exceeded its %s deadline", deadline), err)
		}
		r.failScan(scanID, err)
		return Result{ScanID: scanID, Err: err, Warnings: warnings}
	}

	reportJSON, marshalErr := json.Marshal(report)
	if marshalErr != nil {
		wrapped := scanerr.Wrap(scanerr.KindInternal, "failed to marshal scan report", marshalErr)
		r.failScan(scanID, wrapped)
		return Result{ScanID: scanID, Err: wrapped, Warnings: warnings}
	}
	if err := r.cache.CompleteScanJob(scanID, string(reportJSON)); err != nil {
		r.logger.Warn("failed to persist completed scan job", map[string]interface{}{"scanId": scanID, "error": err.Error()})
	}

	repoName := filepath.Base(req.RepoRoot)
	if err := r.cache.RecordScanHistory(repoName, scanID, shadowUnitIDs(report), clustersFromReport(report), report.Meta.CompletedAt); err != nil {
		r.logger.Warn("failed to record scan history", map[string]interface{}{"scanId": scanID, "error": err.Error()})
	}

	return Result{ScanID: scanID, Report: report, Warnings: warnings}
}

func (r *Runner) failScan(scanID string, err error) {
	kind := string(scanerr.KindOf(err))
	if ferr := r.cache.FailScanJob(scanID, kind, err.Error()); ferr != nil {
		r.logger.Warn("failed to persist failed scan job", map[string]interface{}{"scanId": scanID, "error": ferr.Error()})
	}
}

// clustersFromReport converts the report's ClusterSummary wire shape
// back to similarity.Cluster for persistence, so the next incremental
// scan against this repository can load it via PriorClusters.
func clustersFromReport(report *scanreport.ScanReport) []similarity.Cluster {
	clusters := make([]similarity.Cluster, 0, len(report.Clusters))
	for _, c := range report.Clusters {
		clusters = append(clusters, similarity.Cluster{ID: c.ID, MemberIDs: c.MemberIDs, Suggestion: c.Suggestion})
	}
	return clusters
}

func shadowUnitIDs(report *scanreport.ScanReport) []string {
	var ids []string
	for _, h := range report.Hotspots {
		if h.Shadow {
			ids = append(ids, h.UnitID)
		}
	}
	return ids
}

// run implements §4.8's six steps in order, with explicit barriers
// between steps 2→3→4→5 (§5's "Suspension points").
func (r *Runner) run(ctx context.Context, scanID string, req Request, startedAt time.Time) (*scanreport.ScanReport, []string, error) {
	// Step 1: Ingest.
	paths, warnings, err := r.ingest(req)
	if err != nil {
		return nil, nil, err
	}
	_ = r.cache.UpdateScanProgress(scanID, "ingest", 10)

	// Step 2: parallel fan-out to Extractor and Evidence, consulting
	// the Cache. Similarity's shingle/signature phase is folded into
	// step 4 (similarity.FindClusters tokenizes each Unit's Source
	// itself; there is no separable per-file shingle artifact to
	// materialize ahead of clustering).
	units, evByUnit, evidenceAbsent, fanOutWarnings, err := r.fanOut(ctx, req, paths)
	warnings = append(warnings, fanOutWarnings...)
	if err != nil {
		return nil, warnings, err
	}
	if err := ctx.Err(); err != nil {
		return nil, warnings, err
	}
	_ = r.cache.UpdateScanProgress(scanID, "extract", 40)

	// Step 3: Rules evaluation over the materialized Units.
	matches, err := r.evaluateRules(ctx, units)
	if err != nil {
		return nil, warnings, err
	}
	_ = r.cache.UpdateScanProgress(scanID, "rules", 60)

	// Step 4: Similarity clustering over all materialized Units.
	// Incremental scans restrict FindClusters' candidate universe to
	// changed-adjacent pairs (§4.6), then merge the result with the
	// previous scan's clusters so Units outside the changed set keep
	// their prior membership instead of dropping out of every cluster.
	repoName := filepath.Base(req.RepoRoot)
	changedUnitIDs := changedUnitIDSet(req, units)
	clusters := similarity.FindClusters(units, changedUnitIDs, r.cfg.Similarity)
	if changedUnitIDs != nil {
		priorClusters, ok, err := r.cache.PriorClusters(repoName)
		if err != nil {
			r.logger.Warn("failed to read prior clusters", map[string]interface{}{"error": err.Error()})
		} else if ok {
			// req.ChangedFiles already excludes deletions (detected
			// upstream by the ingest change-detector), so there is no
			// deleted-Unit id set to prune prior members against here.
			clusters = similarity.MergeWithPrior(clusters, priorClusters, changedUnitIDs, nil)
		}
	}
	clusterOf := make(map[string]string, len(units))
	for _, c := range clusters {
		for _, id := range c.MemberIDs {
			clusterOf[id] = c.ID
			if m := rules.EvaluateCluster(r.ruleset, id, c.ID); m != nil {
				matches = append(matches, *m)
			}
		}
	}
	_ = r.cache.UpdateScanProgress(scanID, "similarity", 75)

	// Step 5: Scorer assembles UnitScores and aggregates.
	scores, err := r.score(ctx, units, evByUnit, evidenceAbsent)
	if err != nil {
		return nil, warnings, err
	}
	for i := range scores {
		scores[i].RedundancyClusterID = clusterOf[scores[i].UnitID]
	}
	aggregates := scorer.ComputeAggregates(scores, clusterOf)

	priorShadow, priorScanExists, err := r.cache.PriorShadowUnitIDs(repoName)
	if err != nil {
		r.logger.Warn("failed to read prior shadow history", map[string]interface{}{"error": err.Error()})
	}
	runway := scorer.ComputeRunway(shadowUnitIDsFromScores(scores), priorShadow, priorScanExists)
	_ = r.cache.UpdateScanProgress(scanID, "score", 90)

	// Step 6: Report assembly.
	meta := scanreport.Meta{
		ScanID:      scanID,
		RepoRoot:    req.RepoRoot,
		CommitSHA:   req.CommitSHA,
		Branch:      req.Branch,
		Kind:        scanreport.Kind(req.Kind),
		StartedAt:   startedAt,
		CompletedAt: clock(),
		Warnings:    warnings,
	}
	report := scanreport.Build(meta, units, scores, matches, clusters, aggregates, runway)
	_ = r.cache.UpdateScanProgress(scanID, "report", 100)

	return &report, warnings, nil
}

func shadowUnitIDsFromScores(scores []scorer.UnitScores) []string {
	var ids []string
	for _, s := range scores {
		if s.Shadow {
			ids = append(ids, s.UnitID)
		}
	}
	return ids
}

func changedUnitIDSet(req Request, units []extractor.Unit) map[string]bool {
	if req.Kind != KindIncremental {
		return nil
	}
	changed := make(map[string]bool)
	changedPaths := make(map[string]bool, len(req.ChangedFiles))
	for _, p := range req.ChangedFiles {
		changedPaths[p] = true
	}
	for _, u := range units {
		if changedPaths[u.FilePath] {
			changed[u.ID] = true
		}
	}
	return changed
}

func (r *Runner) ingest(req Request) ([]string, []string, error) {
	if req.Kind == KindIncremental {
		return ingest.Intersect(req.ChangedFiles, r.cfg.Ingest), nil, nil
	}
	paths, warnings, err := ingest.Enumerate(req.RepoRoot, r.cfg.Ingest)
	if err != nil {
		return nil, nil, scanerr.Wrap(scanerr.KindInput, "failed to enumerate repository", err).WithPath(req.RepoRoot)
	}
	var warningStrings []string
	for _, w := range warnings {
		warningStrings = append(warningStrings, fmt.Sprintf("%s: %s", w.Path, w.Message))
	}
	return paths, warningStrings, nil
}

// fanOut runs parse+extract+evidence for every path concurrently,
// bounded by cfg.Pipeline.WorkerPoolSize (§5's scheduling model).
func (r *Runner) fanOut(ctx context.Context, req Request, paths []string) ([]extractor.Unit, map[string]evidence.Evidence, map[string]bool, []string, error) {
	poolSize := r.cfg.Pipeline.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	sem := make(chan struct{}, poolSize)

	var (
		mu             sync.Mutex
		wg             sync.WaitGroup
		allUnits       []extractor.Unit
		evByUnit       = make(map[string]evidence.Evidence)
		evidenceAbsent = make(map[string]bool)
		warnings       []string
		firstFatal     error
	)

	scanTime := clock()

	ttl := r.cfg.Cache.FullScanTTL()
	if req.Kind == KindIncremental {
		ttl = r.cfg.Cache.IncrementalTTL()
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		path := path
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			// Extractors are not safe for concurrent use: one per goroutine.
			units, unitWarnings, err := r.extractOne(ctx, extractor.New(), req.RepoRoot, path, ttl)
			mu.Lock()
			defer mu.Unlock()
			for _, w := range unitWarnings {
				warnings = append(warnings, fmt.Sprintf("%s: %s", w.FilePath, w.Message))
			}
			if err != nil {
				if scanerr.IsFatal(err) {
					if firstFatal == nil {
						firstFatal = err
					}
				} else {
					warnings = append(warnings, err.Error())
				}
				return
			}
			allUnits = append(allUnits, units...)
		}()
	}
	wg.Wait()
	if firstFatal != nil {
		return nil, nil, nil, warnings, firstFatal
	}

	for i := range allUnits {
		u := allUnits[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			ev, absent, err := r.computeEvidence(ctx, req.RepoRoot, u, scanTime)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %s", u.FilePath, err.Error()))
			}
			evByUnit[u.ID] = ev
			evidenceAbsent[u.ID] = absent
		}()
	}
	wg.Wait()

	return allUnits, evByUnit, evidenceAbsent, warnings, nil
}

func (r *Runner) extractOne(ctx context.Context, extr *extractor.Extractor, repoRoot, relPath string, ttl time.Duration) ([]extractor.Unit, []extractor.Warning, error) {
	fullPath := filepath.Join(repoRoot, relPath)
	source, err := os.ReadFile(fullPath)
	if err != nil {
		// The file vanished between Ingest and extraction; not fatal.
		return nil, nil, scanerr.Wrap(scanerr.KindParse, "file unreadable", err).WithPath(relPath)
	}

	lang, ok := fel.LanguageFromExtension(filepath.Ext(relPath))
	if !ok {
		return nil, nil, nil
	}

	contentHash := hashBytes(source)
	key := cache.UnitFeaturesKey(contentHash, parserVersion, extractorVersion)
	var cached []extractor.Unit
	if hit, err := r.cache.GetJSON(key, &cached); err == nil && hit {
		return withSource(cached, source), nil, nil
	}

	units, warnings, err := extr.ExtractFile(ctx, relPath, source, lang)
	if err != nil {
		se := scanerr.Wrap(scanerr.KindParse, "failed to parse file", err).WithPath(relPath)
		se.Recoverable = true
		return nil, warnings, se
	}

	if err := r.cache.SetJSON(cache.FamilyUnitFeatures, key, units, ttl); err != nil {
		r.logger.Warn("failed to cache unit features", map[string]interface{}{"path": relPath, "error": err.Error()})
	}

	return units, warnings, nil
}

// withSource re-attaches the literal source bytes a cached Unit
// doesn't retain (Source is deliberately excluded from JSON so cache
// values stay small); later stages need it for re-parsing.
func withSource(units []extractor.Unit, fileSource []byte) []extractor.Unit {
	for i := range units {
		if int(units[i].EndByte) <= len(fileSource) && units[i].StartByte <= units[i].EndByte {
			units[i].Source = fileSource[units[i].StartByte:units[i].EndByte]
		}
	}
	return units
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (r *Runner) computeEvidence(ctx context.Context, repoRoot string, u extractor.Unit, scanTime time.Time) (evidence.Evidence, bool, error) {
	ev, err := evidence.Compute(ctx, r.vcs, r.logger, repoRoot, u.FilePath, u.StartLine, u.EndLine, scanTime)
	if err != nil {
		return ev, true, scanerr.Wrap(scanerr.KindHistory, "evidence computation failed", err).WithPath(u.FilePath)
	}
	return ev, false, nil
}

func (r *Runner) evaluateRules(ctx context.Context, units []extractor.Unit) ([]rules.Match, error) {
	byFile := make(map[string][]extractor.Unit)
	var matches []rules.Match

	for _, u := range units {
		lang, ok := fel.LanguageFromExtension(filepath.Ext(u.FilePath))
		if !ok {
			continue
		}
		m, err := rules.Evaluate(ctx, u, lang, r.ruleset, r.cfg.Rules.Thresholds)
		if err != nil {
			return nil, scanerr.Wrap(scanerr.KindParse, "rule evaluation failed", err).WithPath(u.FilePath)
		}
		matches = append(matches, m...)
		byFile[u.FilePath] = append(byFile[u.FilePath], u)
	}

	for _, fileUnits := range byFile {
		matches = append(matches, rules.EvaluateFile(r.ruleset, fileUnits, r.cfg.Rules.Thresholds)...)
	}
	return matches, nil
}

func (r *Runner) score(ctx context.Context, units []extractor.Unit, evByUnit map[string]evidence.Evidence, evidenceAbsent map[string]bool) ([]scorer.UnitScores, error) {
	scores := make([]scorer.UnitScores, 0, len(units))
	for _, u := range units {
		s, err := scorer.ScoreUnit(ctx, u, evByUnit[u.ID], evidenceAbsent[u.ID], r.cfg.CognitiveLoad, r.cfg.Shadow)
		if err != nil {
			return nil, scanerr.Wrap(scanerr.KindInternal, "scoring failed", err).WithPath(u.FilePath)
		}
		scores = append(scores, s)
	}
	return scores, nil
}

