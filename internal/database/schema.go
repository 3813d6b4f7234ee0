package database

import "database/sql"

// Schema version for migrations
const currentSchemaVersion = 2

var migrations = []migration{
	{
		version: 1,
		up: []string{
			// One row per media file known to the library
			`CREATE TABLE catalog_items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				path TEXT NOT NULL UNIQUE,

				-- JSON array of the item's own tags
				genres TEXT NOT NULL DEFAULT '[]',

				-- JSON encoded metadata.Video, NULL until scraped
				video TEXT,

				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,

			// Full records keyed by provider:num, used to backfill partial ones
			`CREATE TABLE metadata_cache (
				cache_key TEXT PRIMARY KEY,
				provider TEXT NOT NULL,
				num TEXT NOT NULL,
				video TEXT NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,

			`CREATE INDEX idx_metadata_cache_num ON metadata_cache(num)`,

			`CREATE TABLE schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,

			`INSERT INTO schema_version (version) VALUES (1)`,
		},
	},
	{
		version: 2,
		up: []string{
			// History of organize runs
			`CREATE TABLE runs (
				id TEXT PRIMARY KEY,
				started_at DATETIME NOT NULL,
				finished_at DATETIME,
				status TEXT NOT NULL,
				dry_run BOOLEAN NOT NULL DEFAULT FALSE,
				files_found INTEGER DEFAULT 0,
				relocated INTEGER DEFAULT 0,
				skipped INTEGER DEFAULT 0,
				failed INTEGER DEFAULT 0,
				bytes_relocated INTEGER DEFAULT 0,
				leftovers_deleted INTEGER DEFAULT 0,
				folders_removed INTEGER DEFAULT 0,
				error_message TEXT
			)`,

			`CREATE INDEX idx_runs_started ON runs(started_at DESC)`,

			`INSERT INTO schema_version (version) VALUES (2)`,
		},
	},
}

type migration struct {
	version int
	up      []string
}

// applyMigrations applies any pending schema migrations
func applyMigrations(db *sql.DB) error {
	var currentVersion int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		// schema_version doesn't exist yet - this is a fresh database
		currentVersion = 0
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.up {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return err
			}
		}
		// each migration inserts its own schema_version row
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// SchemaVersion returns the applied schema version.
func (m *MediaDB) SchemaVersion() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var v int
	err := m.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&v)
	return v, err
}
