package storage

import "database/sql"

// migrateV002 adds the full-text index over cached titles and channel names.
// FTS4 ships with the default go-sqlite3 build; FTS5 needs a build tag.
func migrateV002(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS video_fts USING fts4(
			video_id,
			title,
			author,
			notindexed=video_id,
			tokenize=unicode61
		)
	`); err != nil {
		return err
	}

	_, err := tx.Exec(`
		INSERT INTO video_fts (video_id, title, author)
		SELECT video_id, title, author FROM video_metadata
	`)
	return err
}
