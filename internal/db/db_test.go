package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/cassettes/internal/config"
	"github.com/hpungsan/cassettes/internal/errors"
)

// openTestDB opens a fresh storage file in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "tapes.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "tapes.db")

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", path)
	}
	if d.Path() != path {
		t.Errorf("Path() = %q, want %q", d.Path(), path)
	}

	var journalMode string
	if err := d.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	var tableName string
	err = d.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='tapes'").Scan(&tableName)
	if err != nil {
		t.Fatalf("tapes table not found: %v", err)
	}
}

func TestOpen_CreatesDirectories(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "path")

	d, err := Open(filepath.Join(baseDir, "tapes.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		t.Errorf("directory not created at %s", baseDir)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("Open(\"\") error = %v, want VALIDATION", err)
	}
}

func TestOpen_SecondHandleIsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapes.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := Open(path); !errors.Is(err, errors.ErrLocked) {
		t.Fatalf("second Open() error = %v, want LOCKED", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Lock is released on close
	again, err := Open(path)
	if err != nil {
		t.Fatalf("Open() after Close error = %v", err)
	}
	again.Close()
}

func TestUserVersion(t *testing.T) {
	d := openTestDB(t)

	version, err := GetUserVersion(d.DB)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapes.db")

	d, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if _, err := Insert(t.Context(), d.DB, "Alien", "VHS-001"); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	d.Close()

	d, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer d.Close()

	n, err := Count(t.Context(), d.DB)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1 (data survives reopen)", n)
	}
}

func TestOpen_LegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapes.db")

	// Files written by earlier releases: no user_version, DATETIME column.
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	_, err = raw.Exec(`
		CREATE TABLE tapes (
		  id        INTEGER PRIMARY KEY,
		  title     TEXT NOT NULL,
		  tape      TEXT NOT NULL,
		  timestamp DATETIME DEFAULT CURRENT_TIMESTAMP NOT NULL
		);
		INSERT INTO tapes (title, tape, timestamp) VALUES ('Brazil', 'K7-12', '2009-03-14 20:15:00');
	`)
	if err != nil {
		t.Fatalf("legacy schema: %v", err)
	}
	raw.Close()

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	tapes, err := ListAll(t.Context(), d.DB)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(tapes) != 1 {
		t.Fatalf("len = %d, want 1", len(tapes))
	}
	if tapes[0].Title != "Brazil" || tapes[0].Tape != "K7-12" {
		t.Errorf("got %+v", tapes[0])
	}
	if got := tapes[0].CreatedAtDisplay(); got != "2009-03-14 20:15:00" {
		t.Errorf("CreatedAtDisplay() = %q, want 2009-03-14 20:15:00", got)
	}
}

func TestOpen_MigratesV1File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapes.db")

	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	_, err = raw.Exec(`
		CREATE TABLE tapes (
		  id        INTEGER PRIMARY KEY,
		  title     TEXT NOT NULL,
		  tape      TEXT NOT NULL,
		  timestamp TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		INSERT INTO tapes (id, title, tape, timestamp) VALUES (1, 'Alien', 'A1', '2004-07-01 18:30:00');
		INSERT INTO tapes (id, title, tape, timestamp) VALUES (3, 'Brazil', 'C3', '2009-03-14 20:15:00');
		PRAGMA user_version=1;
	`)
	if err != nil {
		t.Fatalf("v1 schema: %v", err)
	}
	raw.Close()

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	version, err := GetUserVersion(d.DB)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("version = %d, want %d", version, CurrentSchemaVersion)
	}

	ctx := t.Context()
	tapes, err := ListAll(ctx, d.DB)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(tapes) != 2 {
		t.Fatalf("len = %d, want 2", len(tapes))
	}
	if tapes[0].ID != 3 || tapes[0].Title != "Brazil" || tapes[1].ID != 1 || tapes[1].Title != "Alien" {
		t.Errorf("rows not kept: %+v", tapes)
	}
	if got := tapes[0].CreatedAtDisplay(); got != "2009-03-14 20:15:00" {
		t.Errorf("CreatedAtDisplay() = %q, want 2009-03-14 20:15:00", got)
	}

	// The rebuilt table no longer hands out the highest id again
	if err := Delete(ctx, d.DB, 3); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	id, err := Insert(ctx, d.DB, "Matrix", "B2")
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id <= 3 {
		t.Errorf("new id = %d, want > 3", id)
	}
}

func TestConfigurePool(t *testing.T) {
	d := openTestDB(t)

	ConfigurePool(d.DB, &config.Config{DBMaxOpenConns: 3})
	if got := d.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("MaxOpenConnections = %d, want 3", got)
	}

	// nil config leaves settings untouched
	ConfigurePool(d.DB, nil)
	if got := d.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("MaxOpenConnections = %d, want 3", got)
	}
}
