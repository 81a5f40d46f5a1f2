package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// sqliteSchemaDDL defines the database schema for the SQLite backend.
//
// The vault table holds exactly one row: the current ciphertext blob and
// its integrity digest. Snapshots accumulate in their own table keyed by
// label, so the rolling policy (fixed label) overwrites in place while the
// archival policy (timestamp labels) grows one row per save.
const sqliteSchemaDDL = `
CREATE TABLE IF NOT EXISTS vault (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    blob BLOB NOT NULL,
    digest TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS snapshots (
    label TEXT PRIMARY KEY,
    blob BLOB NOT NULL,
    taken_at TEXT NOT NULL
);
`

// rollingSnapshotLabel is the fixed snapshots row used when a Snapshot call
// carries an empty label (rolling backup policy).
const rollingSnapshotLabel = "rolling"

// SQLiteBackend implements BlobStore on a local SQLite database.
//
// The database holds ciphertext only; confidentiality does not depend on
// the database file's permissions. Uses WAL mode and opens a fresh
// connection per operation, matching the store's single-process model.
type SQLiteBackend struct {
	// DBPath is the absolute path to the SQLite database file.
	DBPath string
}

// NewSQLiteBackend creates a SQLiteBackend and initializes the schema.
//
// Parent directories are created automatically. Returns an error if the
// database cannot be opened or the schema cannot be created.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	backend := &SQLiteBackend{DBPath: dbPath}

	if err := backend.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return backend, nil
}

// connect opens a new database connection with WAL mode enabled.
func (b *SQLiteBackend) connect() (*sql.DB, error) {
	dir := filepath.Dir(b.DBPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", b.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	return db, nil
}

// ensureSchema creates the database schema if it doesn't exist.
func (b *SQLiteBackend) ensureSchema() error {
	db, err := b.connect()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(sqliteSchemaDDL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}

	return nil
}

// ReadBlob returns the current ciphertext blob, if one has been written.
func (b *SQLiteBackend) ReadBlob() ([]byte, bool, error) {
	db, err := b.connect()
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = db.Close() }()

	var blob []byte
	err = db.QueryRow(`SELECT blob FROM vault WHERE id = 1`).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query blob: %w", err)
	}

	return blob, true, nil
}

// WriteBlob replaces the current ciphertext blob.
func (b *SQLiteBackend) WriteBlob(data []byte) error {
	db, err := b.connect()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	_, err = db.Exec(
		`INSERT INTO vault (id, blob) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET blob = excluded.blob`,
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}

	return nil
}

// ReadDigest returns the stored integrity digest, if one has been recorded.
func (b *SQLiteBackend) ReadDigest() (string, bool, error) {
	db, err := b.connect()
	if err != nil {
		return "", false, err
	}
	defer func() { _ = db.Close() }()

	var digest string
	err = db.QueryRow(`SELECT digest FROM vault WHERE id = 1`).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && digest == "") {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query digest: %w", err)
	}

	return digest, true, nil
}

// WriteDigest replaces the stored integrity digest.
//
// The digest column lives on the vault row, so WriteBlob must have run at
// least once; the RecordStore always writes the blob first.
func (b *SQLiteBackend) WriteDigest(digest string) error {
	db, err := b.connect()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	result, err := db.Exec(`UPDATE vault SET digest = ? WHERE id = 1`, digest)
	if err != nil {
		return fmt.Errorf("failed to write digest: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check digest update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("cannot record digest: no blob stored yet")
	}

	return nil
}

// Snapshot copies the current blob into the snapshots table under label.
//
// Returns taken=false without error when no blob has been written yet.
func (b *SQLiteBackend) Snapshot(label string) (bool, error) {
	blob, exists, err := b.ReadBlob()
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	if label == "" {
		label = rollingSnapshotLabel
	}

	db, err := b.connect()
	if err != nil {
		return false, err
	}
	defer func() { _ = db.Close() }()

	_, err = db.Exec(
		`INSERT INTO snapshots (label, blob, taken_at) VALUES (?, ?, ?)
		 ON CONFLICT(label) DO UPDATE SET blob = excluded.blob, taken_at = excluded.taken_at`,
		label, blob, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("failed to write snapshot: %w", err)
	}

	return true, nil
}

// SnapshotCount returns the number of snapshots currently stored. Used by
// backup policy tests.
func (b *SQLiteBackend) SnapshotCount() (int, error) {
	db, err := b.connect()
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	return count, nil
}
