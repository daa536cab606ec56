package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/hpungsan/cassettes/internal/config"
	"github.com/hpungsan/cassettes/internal/errors"
)

// CurrentSchemaVersion is the latest schema version.
const CurrentSchemaVersion = 2

// DB is the process-wide handle on one storage file. It holds an exclusive
// advisory lock on <path>.lock for as long as it is open, so no other
// process can write the same catalog.
type DB struct {
	*sql.DB

	path string
	lock *flock.Flock
}

// Path returns the storage file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the database and releases the file lock.
func (d *DB) Close() error {
	if d == nil {
		return nil
	}
	var err error
	if d.DB != nil {
		err = d.DB.Close()
	}
	if d.lock != nil {
		if unlockErr := d.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

// Open opens (creating if needed) the SQLite storage file at path.
// The parent directory is created if missing.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.NewValidation("storage file path is required")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewStorage(fmt.Errorf("failed to create storage directory: %w", err))
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errors.NewStorage(fmt.Errorf("failed to lock storage file: %w", err))
	}
	if !ok {
		return nil, errors.NewLocked(path)
	}

	// Pragmas in the connection string apply to every connection.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, errors.NewStorage(fmt.Errorf("failed to open database: %w", err))
	}

	d := &DB{DB: sqlDB, path: path, lock: lock}

	if err := verifyWALMode(sqlDB); err != nil {
		d.Close()
		return nil, err
	}

	if err := migrate(sqlDB); err != nil {
		d.Close()
		return nil, err
	}

	_ = os.Chmod(path, 0600)

	return d, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
// Files created by earlier releases already have the tapes table at
// user_version 0; CREATE TABLE IF NOT EXISTS leaves them untouched and
// migration 2 rebuilds them.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS tapes (
		  id        INTEGER PRIMARY KEY,
		  title     TEXT NOT NULL,
		  tape      TEXT NOT NULL,
		  timestamp TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return errors.NewStorage(fmt.Errorf("migration 1 failed: %w", err))
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := rebuildWithAutoincrement(db); err != nil {
			return errors.NewStorage(fmt.Errorf("migration 2 failed: %w", err))
		}
		if err := SetUserVersion(db, 2); err != nil {
			return err
		}
	}

	return nil
}

// rebuildWithAutoincrement copies the tapes table into one declared with
// AUTOINCREMENT, so ids of deleted tapes are never handed out again.
// Existing ids and timestamps are kept as they are.
func rebuildWithAutoincrement(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE tapes_v2 (
		  id        INTEGER PRIMARY KEY AUTOINCREMENT,
		  title     TEXT NOT NULL,
		  tape      TEXT NOT NULL,
		  timestamp TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`INSERT INTO tapes_v2 (id, title, tape, timestamp)
		   SELECT id, title, tape, timestamp FROM tapes`,
		`DROP TABLE tapes`,
		`ALTER TABLE tapes_v2 RENAME TO tapes`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return errors.NewStorage(fmt.Errorf("failed to verify journal mode: %w", err))
	}
	if journalMode != "wal" {
		return errors.NewStorage(fmt.Errorf("expected WAL mode, got %s", journalMode))
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, errors.NewStorage(fmt.Errorf("failed to get user_version: %w", err))
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return errors.NewStorage(fmt.Errorf("failed to set user_version: %w", err))
	}
	return nil
}
