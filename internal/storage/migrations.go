package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	Apply   func(tx *sql.Tx) error
}

// journalModes are the values SQLite accepts for PRAGMA journal_mode.
var journalModes = map[string]bool{
	"delete": true, "truncate": true, "persist": true,
	"memory": true, "wal": true, "off": true,
}

// ValidJournalMode reports whether mode is a SQLite journal mode.
func ValidJournalMode(mode string) bool {
	return journalModes[strings.ToLower(mode)]
}

// MigrationRunner applies pending migrations to a SQLite database.
type MigrationRunner struct {
	db          *sql.DB
	journalMode string
	migrations  []migration
}

// RunnerOption configures a MigrationRunner.
type RunnerOption func(*MigrationRunner)

// WithJournalMode sets the journal mode applied before migrating. An empty
// mode leaves the connection's mode alone.
func WithJournalMode(mode string) RunnerOption {
	return func(r *MigrationRunner) { r.journalMode = strings.ToLower(mode) }
}

// NewMigrationRunner creates a MigrationRunner with all registered migrations.
// The journal mode defaults to WAL.
func NewMigrationRunner(db *sql.DB, opts ...RunnerOption) *MigrationRunner {
	r := &MigrationRunner{
		db:          db,
		journalMode: "wal",
		migrations: []migration{
			{Version: 1, Name: "initial_schema", Apply: migrateV001},
			{Version: 2, Name: "metadata_search", Apply: migrateV002},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sets the journal mode and applies every migration not yet recorded in
// schema_migrations, in version order. In-memory databases stay in "memory"
// journal mode whatever is requested.
func (r *MigrationRunner) Run() error {
	if r.journalMode != "" {
		if !journalModes[r.journalMode] {
			return fmt.Errorf("unknown journal mode %q", r.journalMode)
		}
		// PRAGMA values cannot be bound; the mode was checked above.
		if _, err := r.db.Exec("PRAGMA journal_mode = " + r.journalMode); err != nil {
			return fmt.Errorf("set journal mode: %w", err)
		}
	}

	if err := r.ensureTracking(); err != nil {
		return err
	}

	applied, err := r.appliedVersions()
	if err != nil {
		return err
	}
	for _, m := range r.migrations {
		if applied[m.Version] {
			continue
		}
		if err := r.apply(m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// Pending lists the names of migrations Run would apply.
func (r *MigrationRunner) Pending() ([]string, error) {
	if err := r.ensureTracking(); err != nil {
		return nil, err
	}
	applied, err := r.appliedVersions()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, m := range r.migrations {
		if !applied[m.Version] {
			names = append(names, m.Name)
		}
	}
	return names, nil
}

// Version returns the highest applied migration version, 0 when none.
func (r *MigrationRunner) Version() (int, error) {
	var v sql.NullInt64
	if err := r.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}

func (r *MigrationRunner) ensureTracking() error {
	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func (r *MigrationRunner) appliedVersions() (map[int]bool, error) {
	rows, err := r.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// apply executes a migration inside a transaction and records it.
func (r *MigrationRunner) apply(m migration) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.Apply(tx); err != nil {
		return err
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}
