package storage_test

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/taskvault/taskvault/internal/storage"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestSQLiteBackend creates a SQLiteBackend using a temporary directory
// managed by t.TempDir(). The database file is automatically cleaned up when
// the test finishes.
func newTestSQLiteBackend(t *testing.T) (*storage.SQLiteBackend, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "vault.db")
	b, err := storage.NewSQLiteBackend(dbPath)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	return b, dbPath
}

// openDirectDB opens a direct sql.DB connection for schema verification,
// bypassing the backend abstraction.
func openDirectDB(t *testing.T, dbPath string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open db directly: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ---------------------------------------------------------------------------
// Schema tests
// ---------------------------------------------------------------------------

func Test_NewSQLiteBackend_CreatesTables(t *testing.T) {
	t.Parallel()
	_, dbPath := newTestSQLiteBackend(t)

	db := openDirectDB(t, dbPath)

	for _, table := range []string{"vault", "snapshots"} {
		var name string
		err := db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("%s table not found: %v", table, err)
		}
	}
}

func Test_NewSQLiteBackend_Idempotent(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "vault.db")

	if _, err := storage.NewSQLiteBackend(dbPath); err != nil {
		t.Fatalf("first NewSQLiteBackend: %v", err)
	}
	if _, err := storage.NewSQLiteBackend(dbPath); err != nil {
		t.Fatalf("second NewSQLiteBackend on same path: %v", err)
	}
}

func Test_NewSQLiteBackend_CreatesParentDirs(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "a", "b", "c", "vault.db")

	if _, err := storage.NewSQLiteBackend(dbPath); err != nil {
		t.Fatalf("NewSQLiteBackend with nested dirs: %v", err)
	}
}

func Test_NewSQLiteBackend_WALMode(t *testing.T) {
	t.Parallel()
	_, dbPath := newTestSQLiteBackend(t)

	db := openDirectDB(t, dbPath)
	var mode string
	if err := db.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode query failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected journal_mode 'wal', got %q", mode)
	}
}

func Test_SQLiteBackend_VaultSingleRowConstraint(t *testing.T) {
	t.Parallel()
	b, dbPath := newTestSQLiteBackend(t)

	if err := b.WriteBlob([]byte("data")); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	// The CHECK (id = 1) constraint must reject a second row.
	db := openDirectDB(t, dbPath)
	if _, err := db.Exec(`INSERT INTO vault (id, blob) VALUES (2, x'00')`); err == nil {
		t.Error("inserting a second vault row succeeded, want CHECK violation")
	}
}

// ---------------------------------------------------------------------------
// Blob and digest tests
// ---------------------------------------------------------------------------

func Test_SQLiteBackend_ReadBlob_EmptyDatabase(t *testing.T) {
	t.Parallel()
	b, _ := newTestSQLiteBackend(t)

	_, exists, err := b.ReadBlob()
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if exists {
		t.Error("exists = true on an empty database")
	}
}

func Test_SQLiteBackend_WriteBlob_Roundtrip(t *testing.T) {
	t.Parallel()
	b, _ := newTestSQLiteBackend(t)

	payload := []byte{0x00, 0x01, 0xFE, 0xFF}
	if err := b.WriteBlob(payload); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	got, exists, err := b.ReadBlob()
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if !exists {
		t.Fatal("exists = false after write")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("blob: got %v, want %v", got, payload)
	}
}

func Test_SQLiteBackend_WriteBlob_ReplacesInPlace(t *testing.T) {
	t.Parallel()
	b, dbPath := newTestSQLiteBackend(t)

	if err := b.WriteBlob([]byte("first")); err != nil {
		t.Fatalf("first WriteBlob: %v", err)
	}
	if err := b.WriteBlob([]byte("second")); err != nil {
		t.Fatalf("second WriteBlob: %v", err)
	}

	got, _, err := b.ReadBlob()
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("blob: got %q, want %q", got, "second")
	}

	db := openDirectDB(t, dbPath)
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM vault`).Scan(&count); err != nil {
		t.Fatalf("count vault rows: %v", err)
	}
	if count != 1 {
		t.Errorf("vault has %d rows, want 1", count)
	}
}

func Test_SQLiteBackend_Digest_Cases(t *testing.T) {
	t.Parallel()

	t.Run("missing on empty database", func(t *testing.T) {
		t.Parallel()
		b, _ := newTestSQLiteBackend(t)

		_, exists, err := b.ReadDigest()
		if err != nil {
			t.Fatalf("ReadDigest: %v", err)
		}
		if exists {
			t.Error("exists = true on an empty database")
		}
	})

	t.Run("write before blob fails", func(t *testing.T) {
		t.Parallel()
		b, _ := newTestSQLiteBackend(t)

		if err := b.WriteDigest("abc123"); err == nil {
			t.Error("WriteDigest succeeded with no vault row")
		}
	})

	t.Run("blob without digest reports not recorded", func(t *testing.T) {
		t.Parallel()
		b, _ := newTestSQLiteBackend(t)

		if err := b.WriteBlob([]byte("data")); err != nil {
			t.Fatalf("WriteBlob: %v", err)
		}

		_, exists, err := b.ReadDigest()
		if err != nil {
			t.Fatalf("ReadDigest: %v", err)
		}
		if exists {
			t.Error("exists = true before any digest was written")
		}
	})

	t.Run("roundtrip after blob", func(t *testing.T) {
		t.Parallel()
		b, _ := newTestSQLiteBackend(t)

		if err := b.WriteBlob([]byte("data")); err != nil {
			t.Fatalf("WriteBlob: %v", err)
		}
		if err := b.WriteDigest("abc123"); err != nil {
			t.Fatalf("WriteDigest: %v", err)
		}

		digest, exists, err := b.ReadDigest()
		if err != nil {
			t.Fatalf("ReadDigest: %v", err)
		}
		if !exists {
			t.Fatal("exists = false after write")
		}
		if digest != "abc123" {
			t.Errorf("digest: got %q, want %q", digest, "abc123")
		}
	})
}

// ---------------------------------------------------------------------------
// Snapshot tests
// ---------------------------------------------------------------------------

func Test_SQLiteBackend_Snapshot_EmptyDatabaseIsNoOp(t *testing.T) {
	t.Parallel()
	b, _ := newTestSQLiteBackend(t)

	taken, err := b.Snapshot("")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if taken {
		t.Error("taken = true on an empty database")
	}

	count, err := b.SnapshotCount()
	if err != nil {
		t.Fatalf("SnapshotCount: %v", err)
	}
	if count != 0 {
		t.Errorf("snapshot count: got %d, want 0", count)
	}
}

func Test_SQLiteBackend_Snapshot_RollingReusesOneRow(t *testing.T) {
	t.Parallel()
	b, dbPath := newTestSQLiteBackend(t)

	for i := 0; i < 3; i++ {
		if err := b.WriteBlob([]byte{byte(i)}); err != nil {
			t.Fatalf("WriteBlob #%d: %v", i, err)
		}
		taken, err := b.Snapshot("")
		if err != nil {
			t.Fatalf("Snapshot #%d: %v", i, err)
		}
		if !taken {
			t.Fatalf("Snapshot #%d: taken = false with a blob present", i)
		}
	}

	count, err := b.SnapshotCount()
	if err != nil {
		t.Fatalf("SnapshotCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("snapshot count: got %d, want 1", count)
	}

	// The single row holds the latest pre-save state.
	db := openDirectDB(t, dbPath)
	var blob []byte
	if err := db.QueryRow(`SELECT blob FROM snapshots`).Scan(&blob); err != nil {
		t.Fatalf("query snapshot blob: %v", err)
	}
	if !bytes.Equal(blob, []byte{2}) {
		t.Errorf("rolling snapshot blob: got %v, want [2]", blob)
	}
}

func Test_SQLiteBackend_Snapshot_ArchiveAccumulatesRows(t *testing.T) {
	t.Parallel()
	b, _ := newTestSQLiteBackend(t)

	labels := []string{"20250101_000001.000000", "20250101_000002.000000", "20250101_000003.000000"}
	for i, label := range labels {
		if err := b.WriteBlob([]byte{byte(i)}); err != nil {
			t.Fatalf("WriteBlob #%d: %v", i, err)
		}
		if _, err := b.Snapshot(label); err != nil {
			t.Fatalf("Snapshot(%q): %v", label, err)
		}
	}

	count, err := b.SnapshotCount()
	if err != nil {
		t.Fatalf("SnapshotCount: %v", err)
	}
	if count != len(labels) {
		t.Errorf("snapshot count: got %d, want %d", count, len(labels))
	}
}

func Test_SQLiteBackend_PersistsAcrossInstances(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "vault.db")

	b1, err := storage.NewSQLiteBackend(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteBackend (b1): %v", err)
	}
	if err := b1.WriteBlob([]byte("persisted")); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if err := b1.WriteDigest("digest-value"); err != nil {
		t.Fatalf("WriteDigest: %v", err)
	}

	// Simulate a process restart: new backend instance, same database.
	b2, err := storage.NewSQLiteBackend(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteBackend (b2): %v", err)
	}

	blob, exists, err := b2.ReadBlob()
	if err != nil || !exists {
		t.Fatalf("b2.ReadBlob: exists=%v err=%v", exists, err)
	}
	if string(blob) != "persisted" {
		t.Errorf("blob: got %q, want %q", blob, "persisted")
	}

	digest, exists, err := b2.ReadDigest()
	if err != nil || !exists {
		t.Fatalf("b2.ReadDigest: exists=%v err=%v", exists, err)
	}
	if digest != "digest-value" {
		t.Errorf("digest: got %q, want %q", digest, "digest-value")
	}
}

// ---------------------------------------------------------------------------
// Interface compliance
// ---------------------------------------------------------------------------

func Test_SQLiteBackend_ImplementsBlobStore(t *testing.T) {
	t.Parallel()
	var _ storage.BlobStore = (*storage.SQLiteBackend)(nil)
}

// ---------------------------------------------------------------------------
// Benchmark tests
// ---------------------------------------------------------------------------

func Benchmark_SQLiteBackend_WriteBlob(b *testing.B) {
	dbPath := filepath.Join(b.TempDir(), "bench.db")
	backend, err := storage.NewSQLiteBackend(dbPath)
	if err != nil {
		b.Fatalf("NewSQLiteBackend: %v", err)
	}

	payload := bytes.Repeat([]byte{0xAB}, 4096)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := backend.WriteBlob(payload); err != nil {
			b.Fatalf("WriteBlob: %v", err)
		}
	}
}

func Benchmark_SQLiteBackend_ReadBlob(b *testing.B) {
	dbPath := filepath.Join(b.TempDir(), "bench.db")
	backend, err := storage.NewSQLiteBackend(dbPath)
	if err != nil {
		b.Fatalf("NewSQLiteBackend: %v", err)
	}
	if err := backend.WriteBlob(bytes.Repeat([]byte{0xAB}, 4096)); err != nil {
		b.Fatalf("seed WriteBlob: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := backend.ReadBlob(); err != nil {
			b.Fatalf("ReadBlob: %v", err)
		}
	}
}
