package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"habitforge/internal/model"
)

// SQLiteStore is the local single-file store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenSQLiteStore opens the database at path and wraps it as a Store.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(db), nil
}

func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", classifySQLiteErr(err))
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *SQLiteStore) TopByXP(ctx context.Context, limit int) ([]model.UserProgress, error) {
	return sqliteTopByXP(ctx, s.db, limit)
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) GetProgress(ctx context.Context, userID string) (*model.UserProgress, error) {
	return sqliteGetProgress(ctx, t.tx, userID)
}

func (t *sqliteTx) InsertProgress(ctx context.Context, p *model.UserProgress) error {
	return sqliteInsertProgress(ctx, t.tx, p)
}

func (t *sqliteTx) PutProgress(ctx context.Context, p *model.UserProgress) error {
	return sqliteUpdateProgress(ctx, t.tx, p)
}

func (t *sqliteTx) GetHabit(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	return sqliteGetHabit(ctx, t.tx, userID, habitID)
}

func (t *sqliteTx) ListHabits(ctx context.Context, userID string) ([]model.Habit, error) {
	return sqliteListHabits(ctx, t.tx, userID)
}

func (t *sqliteTx) InsertHabit(ctx context.Context, h *model.Habit) error {
	return sqliteInsertHabit(ctx, t.tx, h)
}

func (t *sqliteTx) PutHabit(ctx context.Context, h *model.Habit) error {
	return sqliteUpdateHabit(ctx, t.tx, h)
}

func (t *sqliteTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", classifySQLiteErr(err))
	}
	return nil
}

func (t *sqliteTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}
