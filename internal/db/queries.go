package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/hpungsan/cassettes/internal/errors"
	"github.com/hpungsan/cassettes/internal/tape"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const selectColumns = `SELECT id, title, tape, timestamp FROM tapes`

// ListAll returns every tape, most recently created first (id descending).
func ListAll(ctx context.Context, db *sql.DB) ([]tape.Tape, error) {
	rows, err := db.QueryContext(ctx, selectColumns+` ORDER BY id DESC`)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	tapes := []tape.Tape{}
	for rows.Next() {
		t, err := scanTape(rows)
		if err != nil {
			return nil, errors.NewStorage(err)
		}
		tapes = append(tapes, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}

	return tapes, nil
}

// GetByID retrieves a single tape.
func GetByID(ctx context.Context, db *sql.DB, id int64) (tape.Tape, error) {
	row := db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	t, err := scanTape(row)
	if err == sql.ErrNoRows {
		return tape.Tape{}, errors.NewNotFound(id)
	}
	if err != nil {
		return tape.Tape{}, errors.NewStorage(err)
	}
	return t, nil
}

// Count returns the number of stored tapes.
func Count(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tapes`).Scan(&n); err != nil {
		return 0, errors.NewStorage(err)
	}
	return n, nil
}

// Insert stores a new tape and returns the id assigned by storage.
// The creation timestamp is assigned by the engine.
func Insert(ctx context.Context, db *sql.DB, title, label string) (int64, error) {
	title, label, err := validateFields(title, label)
	if err != nil {
		return 0, err
	}

	result, err := db.ExecContext(ctx, `INSERT INTO tapes (title, tape) VALUES (?, ?)`, title, label)
	if err != nil {
		return 0, errors.NewStorage(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.NewStorage(err)
	}
	return id, nil
}

// InsertWithTimestamp stores a tape carrying an existing creation time, as
// read from an export file. A zero CreatedAt falls back to the engine default.
func InsertWithTimestamp(ctx context.Context, ex execer, t tape.Tape) (int64, error) {
	title, label, err := validateFields(t.Title, t.Tape)
	if err != nil {
		return 0, err
	}

	var result sql.Result
	if t.CreatedAt.IsZero() {
		result, err = ex.ExecContext(ctx, `INSERT INTO tapes (title, tape) VALUES (?, ?)`, title, label)
	} else {
		result, err = ex.ExecContext(ctx,
			`INSERT INTO tapes (title, tape, timestamp) VALUES (?, ?, ?)`,
			title, label, t.CreatedAt.UTC().Format(tape.DisplayLayout),
		)
	}
	if err != nil {
		return 0, errors.NewStorage(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, errors.NewStorage(err)
	}
	return id, nil
}

// Update replaces title and tape label of an existing tape.
// Does NOT change: id, timestamp
func Update(ctx context.Context, db *sql.DB, id int64, title, label string) error {
	title, label, err := validateFields(title, label)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `UPDATE tapes SET title = ?, tape = ? WHERE id = ?`, title, label, id)
	if err != nil {
		return errors.NewStorage(err)
	}
	return requireOneRow(result, id)
}

// Delete removes a tape. Deleting an id that is not stored is an error.
func Delete(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM tapes WHERE id = ?`, id)
	if err != nil {
		return errors.NewStorage(err)
	}
	return requireOneRow(result, id)
}

// requireOneRow maps a write that matched no row to NOT_FOUND.
func requireOneRow(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorage(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// validateFields cleans both text fields and rejects empty ones.
func validateFields(title, label string) (string, string, error) {
	title = tape.CleanField(title)
	label = tape.CleanField(label)
	if title == "" {
		return "", "", errors.NewEmptyField("title")
	}
	if label == "" {
		return "", "", errors.NewEmptyField("tape")
	}
	return title, label, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTape scans a single row into a Tape.
func scanTape(row scanner) (tape.Tape, error) {
	var (
		t  tape.Tape
		ts any
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Tape, &ts); err != nil {
		return tape.Tape{}, err
	}

	createdAt, err := parseStoredTime(ts)
	if err != nil {
		return tape.Tape{}, fmt.Errorf("tape %d: %w", t.ID, err)
	}
	t.CreatedAt = createdAt
	return t, nil
}

// parseStoredTime accepts the representations the timestamp column may hold:
// text written by CURRENT_TIMESTAMP, a driver-decoded time, or unix seconds.
func parseStoredTime(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts.UTC(), nil
	case string:
		return parseStoredText(ts)
	case []byte:
		return parseStoredText(string(ts))
	case int64:
		return time.Unix(ts, 0).UTC(), nil
	case nil:
		return time.Time{}, fmt.Errorf("timestamp is NULL")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func parseStoredText(s string) (time.Time, error) {
	if t, err := tape.ParseTimestamp(s); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
