package cache

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// initializeSchema creates the tables for a new cache database.
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createArtifactsTable(tx); err != nil {
			return err
		}
		if err := createScanJobsTable(tx); err != nil {
			return err
		}
		if err := createScanHistoryTable(tx); err != nil {
			return err
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	return err
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createArtifactsTable creates the single content-addressed artifact
// table backing all three key families in §4.7: Unit features, Evidence,
// and Similarity shingles/signatures. The family is recorded alongside
// the key purely for observability (GetStats); lookups are by key alone.
func createArtifactsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			cache_key  TEXT PRIMARY KEY,
			family     TEXT NOT NULL,
			value      BLOB NOT NULL,
			compressed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create artifacts table: %w", err)
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_artifacts_expires_at ON artifacts(expires_at)")
	return err
}

// createScanJobsTable backs the "status handle" half of §6.1: a scan
// submitted for async execution can be polled idempotently by scan id.
func createScanJobsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS scan_jobs (
			scan_id      TEXT PRIMARY KEY,
			scan_kind    TEXT NOT NULL,
			status       TEXT NOT NULL,
			progress     INTEGER NOT NULL DEFAULT 0,
			stage        TEXT,
			created_at   TEXT NOT NULL,
			started_at   TEXT,
			completed_at TEXT,
			error_code   TEXT,
			error_message TEXT,
			report_json  TEXT
		)
	`)
	return err
}

// createScanHistoryTable stores the shadow-unit id set per completed scan
// so the next scan can compute Runway's H term (§4.5).
func createScanHistoryTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS scan_history (
			repo_name    TEXT NOT NULL,
			scan_id      TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			shadow_unit_ids TEXT NOT NULL,
			clusters     TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (repo_name, scan_id)
		)
	`)
	if err != nil {
		return err
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_scan_history_repo ON scan_history(repo_name, completed_at)")
	return err
}
