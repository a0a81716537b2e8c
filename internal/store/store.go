package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the vuensight index.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
-- Extraction tables

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS components (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL UNIQUE REFERENCES files(id),
  name            TEXT NOT NULL,
  declaration_hash TEXT
);

CREATE TABLE IF NOT EXISTS props (
  id              INTEGER PRIMARY KEY,
  component_id    INTEGER NOT NULL REFERENCES components(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  type_expr       TEXT,
  required        BOOLEAN DEFAULT FALSE,
  default_json    TEXT
);

CREATE TABLE IF NOT EXISTS events (
  id              INTEGER PRIMARY KEY,
  component_id    INTEGER NOT NULL REFERENCES components(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  is_sync         BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS slots (
  id              INTEGER PRIMARY KEY,
  component_id    INTEGER NOT NULL REFERENCES components(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  source          TEXT NOT NULL,
  imported_name   TEXT,
  local_alias     TEXT,
  registered_as   TEXT,
  resolved_path   TEXT
);

-- Analysis tables

CREATE TABLE IF NOT EXISTS usages (
  id              INTEGER PRIMARY KEY,
  component_id    INTEGER NOT NULL REFERENCES components(id),
  dependent_file_id INTEGER NOT NULL REFERENCES files(id),
  UNIQUE (component_id, dependent_file_id)
);

CREATE TABLE IF NOT EXISTS used_channels (
  usage_id        INTEGER NOT NULL REFERENCES usages(id),
  kind            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL,
  PRIMARY KEY (usage_id, kind, ordinal)
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);
CREATE INDEX IF NOT EXISTS idx_components_name ON components(name);
CREATE INDEX IF NOT EXISTS idx_props_component ON props(component_id);
CREATE INDEX IF NOT EXISTS idx_events_component ON events(component_id);
CREATE INDEX IF NOT EXISTS idx_slots_component ON slots(component_id);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
CREATE INDEX IF NOT EXISTS idx_imports_resolved ON imports(resolved_path);
CREATE INDEX IF NOT EXISTS idx_usages_component ON usages(component_id);
CREATE INDEX IF NOT EXISTS idx_usages_dependent ON usages(dependent_file_id);
`

// DeleteFileData transactionally removes all data for a file: its
// component and channels, its imports, and usage rows on either side.
// Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFileDataTx(tx, fileID); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteFileDataTx(tx *sql.Tx, fileID int64) error {
	const componentOf = "(SELECT id FROM components WHERE file_id = ?)"
	for _, q := range []string{
		"DELETE FROM used_channels WHERE usage_id IN (SELECT id FROM usages WHERE dependent_file_id = ? OR component_id IN " + componentOf + ")",
		"DELETE FROM usages WHERE dependent_file_id = ? OR component_id IN " + componentOf,
	} {
		if _, err := tx.Exec(q, fileID, fileID); err != nil {
			return fmt.Errorf("delete usage data: %w", err)
		}
	}
	for _, q := range []string{
		"DELETE FROM props WHERE component_id IN " + componentOf,
		"DELETE FROM events WHERE component_id IN " + componentOf,
		"DELETE FROM slots WHERE component_id IN " + componentOf,
		"DELETE FROM components WHERE file_id = ?",
		"DELETE FROM imports WHERE file_id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete extraction data: %w", err)
		}
	}
	return nil
}

// DeleteFile removes a file and all data attached to it.
func (s *Store) DeleteFile(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFileDataTx(tx, fileID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return tx.Commit()
}

// --- Metadata ---

// Metadata returns the value stored under key, or "" when absent.
func (s *Store) Metadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("metadata %s: %w", key, err)
	}
	return v, nil
}

// SetMetadata stores value under key.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
