package catalog

import (
	"context"
	"database/sql"

	"github.com/hpungsan/cassettes/internal/db"
	"github.com/hpungsan/cassettes/internal/errors"
	"github.com/hpungsan/cassettes/internal/tape"
)

// SQLStorage implements Storage over the SQLite adapter.
type SQLStorage struct {
	db *sql.DB
}

// NewSQLStorage wraps an open database handle.
func NewSQLStorage(database *sql.DB) *SQLStorage {
	return &SQLStorage{db: database}
}

func (s *SQLStorage) ListAll(ctx context.Context) ([]tape.Tape, error) {
	return db.ListAll(ctx, s.db)
}

func (s *SQLStorage) Insert(ctx context.Context, title, label string) (int64, error) {
	return db.Insert(ctx, s.db, title, label)
}

func (s *SQLStorage) Update(ctx context.Context, id int64, title, label string) error {
	return db.Update(ctx, s.db, id, title, label)
}

func (s *SQLStorage) Delete(ctx context.Context, id int64) error {
	return db.Delete(ctx, s.db, id)
}

// InsertBatch inserts every tape in one transaction.
func (s *SQLStorage) InsertBatch(ctx context.Context, tapes []tape.Tape) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorage(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, t := range tapes {
		if _, err := db.InsertWithTimestamp(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorage(err)
	}
	return nil
}
