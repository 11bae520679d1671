package storage

import "database/sql"

// migrateV001 creates the cache, settings, and audit tables. Every statement
// uses IF NOT EXISTS so a half-applied run can be retried.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS video_metadata (
			video_id    TEXT PRIMARY KEY,
			title       TEXT NOT NULL DEFAULT '',
			author      TEXT NOT NULL DEFAULT '',
			views       INTEGER NOT NULL DEFAULT 0,
			upload_date DATETIME,
			duration    INTEGER NOT NULL DEFAULT 0,
			premiere    INTEGER,
			skipped     INTEGER,
			playlist    BOOLEAN NOT NULL DEFAULT 0,
			live        BOOLEAN NOT NULL DEFAULT 0,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS tab_urls (
			tab_id     TEXT PRIMARY KEY,
			url        TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS config (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS audit_log (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			action   TEXT NOT NULL,
			detail   TEXT NOT NULL DEFAULT '',
			video_id TEXT,
			ts       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_video_metadata_updated ON video_metadata(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_video_metadata_author  ON video_metadata(author)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_ts           ON audit_log(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_action       ON audit_log(action)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
