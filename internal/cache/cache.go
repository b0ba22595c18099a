package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"shadowscan/internal/logging"
	"shadowscan/internal/similarity"
)

// Family names the three key families of §4.7. It has no bearing on
// lookup (keys alone are unique) — it is recorded for GetStats.
type Family string

const (
	FamilyUnitFeatures Family = "unit_features"
	FamilyEvidence     Family = "evidence"
	FamilySimilarity   Family = "similarity"
)

// TTL policy per §4.7: full scans cache for a week, incremental scans
// for a day, since an incremental run's inputs (working tree, recent
// history) are far more likely to have shifted underneath a stale key.
const (
	TTLFullScan        = 7 * 24 * time.Hour
	TTLIncrementalScan = 24 * time.Hour
)

// compressThreshold is the size below which zstd overhead isn't worth
// paying — small values (most Evidence records) are stored raw.
const compressThreshold = 256

// Cache is the content-addressed artifact store. It never originates
// data: every Get miss must be satisfiable by the caller recomputing
// the value from its inputs.
type Cache struct {
	db      *DB
	logger  *logging.Logger
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCache wraps an open DB with the compression codecs this package
// needs. The codecs are safe for concurrent use by multiple goroutines.
func NewCache(db *DB, logger *logging.Logger) (*Cache, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Cache{db: db, logger: logger, encoder: enc, decoder: dec}, nil
}

// MakeKey hex-encodes the SHA-256 of its parts, joined by a separator
// byte that cannot appear inside any part (all callers pass hex
// digests, hashes, or version strings).
func MakeKey(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// UnitFeaturesKey keys the Extractor's cached feature set for a file by
// content hash plus the parser and extractor versions, so a grammar or
// extraction-logic upgrade invalidates stale entries without a TTL wait.
func UnitFeaturesKey(fileContentHash, parserVersion, extractorVersion string) string {
	return MakeKey("unit_features", fileContentHash, parserVersion, extractorVersion)
}

// EvidenceKey keys a cached review-evidence record by the repository
// commit the scan ran against, the file path, and a hash of the Unit's
// line span, so the same file at the same commit reuses evidence across
// units that haven't moved.
func EvidenceKey(commitSHA, filePath, spanHash string) string {
	return MakeKey("evidence", commitSHA, filePath, spanHash)
}

// SimilarityKey keys a Unit's cached shingle set / MinHash signature by
// the Unit's stable identifier and the token-normalizer version.
func SimilarityKey(unitID, normalizerVersion string) string {
	return MakeKey("similarity", unitID, normalizerVersion)
}

// Get looks up key, transparently decompressing if it was stored
// compressed. ok is false on a miss; it is never true for a stale
// (expired) row — expired rows are treated as misses and lazily deleted.
func (c *Cache) Get(key string) (value []byte, ok bool, err error) {
	var raw []byte
	var compressed int
	var expiresAt string
	row := c.db.QueryRow(
		"SELECT value, compressed, expires_at FROM artifacts WHERE cache_key = ?", key,
	)
	if err := row.Scan(&raw, &compressed, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, false, fmt.Errorf("cache get: malformed expires_at: %w", err)
	}
	if time.Now().After(expiry) {
		if _, delErr := c.db.Exec("DELETE FROM artifacts WHERE cache_key = ?", key); delErr != nil {
			c.logger.Warn("failed to evict expired artifact", map[string]interface{}{
				"key": key, "error": delErr.Error(),
			})
		}
		return nil, false, nil
	}

	if compressed == 0 {
		return raw, true, nil
	}
	decoded, err := c.decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, false, fmt.Errorf("cache get: decompress: %w", err)
	}
	return decoded, true, nil
}

// GetJSON is a convenience wrapper that decodes a cached JSON value.
func (c *Cache) GetJSON(key string, dest interface{}) (bool, error) {
	raw, ok, err := c.Get(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache get: unmarshal: %w", err)
	}
	return true, nil
}

// Set stores value under key with the given family (for observability
// only) and TTL. Values at or above compressThreshold are zstd-compressed.
func (c *Cache) Set(family Family, key string, value []byte, ttl time.Duration) error {
	stored := value
	compressed := 0
	if len(value) >= compressThreshold {
		stored = c.encoder.EncodeAll(value, nil)
		compressed = 1
	}

	now := time.Now().UTC()
	_, err := c.db.Exec(`
		INSERT INTO artifacts (cache_key, family, value, compressed, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			family = excluded.family,
			value = excluded.value,
			compressed = excluded.compressed,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, key, string(family), stored, compressed, now.Format(time.RFC3339), now.Add(ttl).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// SetJSON is a convenience wrapper that marshals value as JSON before storing.
func (c *Cache) SetJSON(family Family, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set: marshal: %w", err)
	}
	return c.Set(family, key, raw, ttl)
}

// CleanupExpired deletes every artifact past its expiry and reports how
// many rows were removed. It is the implementation behind the cache gc
// command.
func (c *Cache) CleanupExpired() (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := c.db.Exec("DELETE FROM artifacts WHERE expires_at < ?", now)
	if err != nil {
		return 0, fmt.Errorf("cache cleanup: %w", err)
	}
	return result.RowsAffected()
}

// Stats summarizes the cache's current contents by family.
type Stats struct {
	Counts     map[string]int64
	TotalBytes int64
}

// GetStats reports per-family row counts and total stored bytes
// (post-compression), for `cmd/shadowscan cache stats`'s summary output.
func (c *Cache) GetStats() (Stats, error) {
	stats := Stats{Counts: make(map[string]int64)}

	rows, err := c.db.Query("SELECT family, COUNT(*), COALESCE(SUM(LENGTH(value)), 0) FROM artifacts GROUP BY family")
	if err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var family string
		var count, size int64
		if err := rows.Scan(&family, &count, &size); err != nil {
			return stats, fmt.Errorf("cache stats: scan: %w", err)
		}
		stats.Counts[family] = count
		stats.TotalBytes += size
	}
	return stats, rows.Err()
}

// RecordScanHistory persists the shadow-unit id set and the cluster
// list of a completed scan, so the next scan against the same
// repository can compute Runway's H term (units that healed: shadow=
// true in the prior scan, false now) and merge incremental clustering
// results against a stable baseline (§4.6's incremental-parity
// contract).
func (c *Cache) RecordScanHistory(repoName, scanID string, shadowUnitIDs []string, clusters []similarity.Cluster, completedAt time.Time) error {
	encodedShadow, err := json.Marshal(shadowUnitIDs)
	if err != nil {
		return fmt.Errorf("record scan history: marshal shadow units: %w", err)
	}
	encodedClusters, err := json.Marshal(clusters)
	if err != nil {
		return fmt.Errorf("record scan history: marshal clusters: %w", err)
	}
	_, err = c.db.Exec(
		"INSERT INTO scan_history (repo_name, scan_id, completed_at, shadow_unit_ids, clusters) VALUES (?, ?, ?, ?, ?)",
		repoName, scanID, completedAt.UTC().Format(time.RFC3339), string(encodedShadow), string(encodedClusters),
	)
	if err != nil {
		return fmt.Errorf("record scan history: %w", err)
	}
	return nil
}

// PriorShadowUnitIDs returns the shadow-unit id set from the most recent
// completed scan of repoName. ok is false when no prior scan exists, the
// boundary case the scorer reports as "insufficient data" for runway.
func (c *Cache) PriorShadowUnitIDs(repoName string) (ids map[string]bool, ok bool, err error) {
	var encoded string
	row := c.db.QueryRow(
		"SELECT shadow_unit_ids FROM scan_history WHERE repo_name = ? ORDER BY completed_at DESC LIMIT 1",
		repoName,
	)
	if err := row.Scan(&encoded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("prior shadow units: %w", err)
	}

	var list []string
	if err := json.Unmarshal([]byte(encoded), &list); err != nil {
		return nil, false, fmt.Errorf("prior shadow units: unmarshal: %w", err)
	}
	ids = make(map[string]bool, len(list))
	for _, id := range list {
		ids[id] = true
	}
	return ids, true, nil
}

// PriorClusters returns the cluster list from the most recent completed
// scan of repoName, for an incremental scan to merge against (§4.6).
// ok is false when no prior scan exists.
func (c *Cache) PriorClusters(repoName string) (clusters []similarity.Cluster, ok bool, err error) {
	var encoded string
	row := c.db.QueryRow(
		"SELECT clusters FROM scan_history WHERE repo_name = ? ORDER BY completed_at DESC LIMIT 1",
		repoName,
	)
	if err := row.Scan(&encoded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("prior clusters: %w", err)
	}

	if err := json.Unmarshal([]byte(encoded), &clusters); err != nil {
		return nil, false, fmt.Errorf("prior clusters: unmarshal: %w", err)
	}
	return clusters, true, nil
}

// ScanJobStatus is the lifecycle state of an asynchronously-submitted scan.
type ScanJobStatus string

const (
	ScanJobPending   ScanJobStatus = "pending"
	ScanJobRunning   ScanJobStatus = "running"
	ScanJobSucceeded ScanJobStatus = "succeeded"
	ScanJobFailed    ScanJobStatus = "failed"
)

// ScanJob is the status handle §6.1 requires for async scan submission:
// idempotent polling by scan id without depending on an HTTP layer.
type ScanJob struct {
	ScanID       string
	ScanKind     string
	Status       ScanJobStatus
	Progress     int
	Stage        string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorCode    string
	ErrorMessage string
	ReportJSON   string
}

// CreateScanJob inserts a new pending job row.
func (c *Cache) CreateScanJob(scanID, scanKind string) error {
	_, err := c.db.Exec(
		"INSERT INTO scan_jobs (scan_id, scan_kind, status, progress, created_at) VALUES (?, ?, ?, 0, ?)",
		scanID, scanKind, string(ScanJobPending), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create scan job: %w", err)
	}
	return nil
}

// UpdateScanProgress advances a running job's stage and percent-complete.
func (c *Cache) UpdateScanProgress(scanID, stage string, progress int) error {
	_, err := c.db.Exec(
		"UPDATE scan_jobs SET status = ?, stage = ?, progress = ?, started_at = COALESCE(started_at, ?) WHERE scan_id = ?",
		string(ScanJobRunning), stage, progress, time.Now().UTC().Format(time.RFC3339), scanID,
	)
	if err != nil {
		return fmt.Errorf("update scan progress: %w", err)
	}
	return nil
}

// CompleteScanJob marks a job finished successfully, attaching the
// rendered report JSON for a later poll to retrieve.
func (c *Cache) CompleteScanJob(scanID, reportJSON string) error {
	_, err := c.db.Exec(
		"UPDATE scan_jobs SET status = ?, progress = 100, completed_at = ?, report_json = ? WHERE scan_id = ?",
		string(ScanJobSucceeded), time.Now().UTC().Format(time.RFC3339), reportJSON, scanID,
	)
	if err != nil {
		return fmt.Errorf("complete scan job: %w", err)
	}
	return nil
}

// FailScanJob marks a job finished with an unrecoverable error.
func (c *Cache) FailScanJob(scanID, errorCode, errorMessage string) error {
	_, err := c.db.Exec(
		"UPDATE scan_jobs SET status = ?, completed_at = ?, error_code = ?, error_message = ? WHERE scan_id = ?",
		string(ScanJobFailed), time.Now().UTC().Format(time.RFC3339), errorCode, errorMessage, scanID,
	)
	if err != nil {
		return fmt.Errorf("fail scan job: %w", err)
	}
	return nil
}

// GetScanJob fetches a job's current status for polling.
func (c *Cache) GetScanJob(scanID string) (*ScanJob, error) {
	job := &ScanJob{ScanID: scanID}
	var createdAt string
	var startedAt, completedAt sql.NullString
	var stage, errorCode, errorMessage, reportJSON sql.NullString
	var status string

	row := c.db.QueryRow(`
		SELECT scan_kind, status, progress, stage, created_at, started_at, completed_at,
		       error_code, error_message, report_json
		FROM scan_jobs WHERE scan_id = ?`, scanID)
	err := row.Scan(&job.ScanKind, &status, &job.Progress, &stage, &createdAt, &startedAt, &completedAt,
		&errorCode, &errorMessage, &reportJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scan job %q not found", scanID)
		}
		return nil, fmt.Errorf("get scan job: %w", err)
	}

	job.Status = ScanJobStatus(status)
	job.Stage = stage.String
	job.ErrorCode = errorCode.String
	job.ErrorMessage = errorMessage.String
	job.ReportJSON = reportJSON.String

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		job.CreatedAt = t
	}
	if startedAt.Valid {
		if t, err := time.Parse(time.RFC3339, startedAt.String); err == nil {
			job.StartedAt = &t
		}
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			job.CompletedAt = &t
		}
	}
	return job, nil
}
