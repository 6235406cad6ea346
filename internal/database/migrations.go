package database

import (
	"fmt"
	"log"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations run in order. The SQL is shared by SQLite and PostgreSQL, so it
// sticks to types and clauses both understand.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_schema_version_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		Version: 2,
		Name:    "create_batches_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS batches (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				sentence_count INTEGER NOT NULL DEFAULT 0,
				last_error TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				completed_at TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at);
			CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
		`,
	},
	{
		Version: 3,
		Name:    "create_batch_sentences_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS batch_sentences (
				batch_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				sentence TEXT NOT NULL,
				human_label TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (batch_id, position),
				FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
			);
		`,
	},
	{
		Version: 4,
		Name:    "create_batch_results_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS batch_results (
				batch_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				system_label TEXT NOT NULL,
				positive INTEGER NOT NULL DEFAULT 0,
				negative INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (batch_id, position),
				FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
			);
		`,
	},
	{
		Version: 5,
		Name:    "create_unlisted_terms_table",
		SQL: `
			CREATE TABLE IF NOT EXISTS unlisted_terms (
				term TEXT PRIMARY KEY,
				occurrences INTEGER NOT NULL DEFAULT 0,
				first_seen TIMESTAMP NOT NULL,
				last_seen TIMESTAMP NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_unlisted_terms_occurrences ON unlisted_terms(occurrences);
		`,
	},
	{
		Version: 6,
		Name:    "add_agreement_columns",
		SQL: `
			ALTER TABLE batches ADD COLUMN compared INTEGER NOT NULL DEFAULT 0;
			ALTER TABLE batches ADD COLUMN accuracy DOUBLE PRECISION NOT NULL DEFAULT 0;
			ALTER TABLE batches ADD COLUMN kappa DOUBLE PRECISION NOT NULL DEFAULT 0;
		`,
	},
}

// Migrate runs all pending migrations
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(migrations[0].SQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var currentVersion int
	err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	log.Printf("Current schema version: %d", currentVersion)

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		log.Printf("Applying migration %d: %s", migration.Version, migration.Name)
		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(db.rebind("INSERT INTO schema_version (version) VALUES (?)"), migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	log.Println("All migrations complete")
	return nil
}

// Version returns the highest applied migration
func (db *DB) Version() (int, error) {
	var v int
	if err := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return v, nil
}
