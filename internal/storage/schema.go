package storage

import (
	"database/sql"
	"fmt"
)

const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createRunsTable(tx); err != nil {
			return err
		}
		if err := createSymbolsTable(tx); err != nil {
			return err
		}
		if err := createReferencesTable(tx); err != nil {
			return err
		}
		if err := createUsagesTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations brings an existing database up to currentSchemaVersion.
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}
	if version == currentSchemaVersion {
		db.logger.Debug("database schema is up to date", "version", version)
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("running database migrations", "from_version", version, "to_version", currentSchemaVersion)
	if version == 0 {
		return db.initializeSchema()
	}
	return nil
}

func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.queryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.queryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createRunsTable holds one row per stored snapshot.
func createRunsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			created_at TEXT NOT NULL,
			stored_at TEXT NOT NULL,
			file_count INTEGER NOT NULL,
			symbol_count INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}
	return nil
}

// createSymbolsTable holds every symbol of a run. listed is 0 for symbols
// that only appear as reference or usage targets.
func createSymbolsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS symbols (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			container TEXT NOT NULL DEFAULT '',
			qualified_name TEXT NOT NULL DEFAULT '',
			uri TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			start_col INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			end_col INTEGER NOT NULL,
			listed INTEGER NOT NULL DEFAULT 1,

			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create symbols table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_symbols_run_uri ON symbols(run_id, uri)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// createReferencesTable maps a declaration key to the symbols referencing it.
func createReferencesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS symbol_references (
			run_id TEXT NOT NULL,
			decl_key TEXT NOT NULL,
			symbol_id INTEGER NOT NULL,

			PRIMARY KEY (run_id, decl_key, symbol_id),
			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
			FOREIGN KEY (symbol_id) REFERENCES symbols(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create symbol_references table: %w", err)
	}
	return nil
}

// createUsagesTable links usage sites to their declarations.
func createUsagesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS usages (
			run_id TEXT NOT NULL,
			uri TEXT NOT NULL,
			start_line INTEGER NOT NULL,
			start_col INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			end_col INTEGER NOT NULL,
			decl_id INTEGER NOT NULL,

			FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
			FOREIGN KEY (decl_id) REFERENCES symbols(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create usages table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_usages_run_uri ON usages(run_id, uri)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}
