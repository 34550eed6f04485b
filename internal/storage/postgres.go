package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitforge/internal/model"
)

// PostgresStore is the shared multi-client store. Transactions run at
// REPEATABLE READ; serialization failures and version mismatches both
// surface as ErrConflict.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_progress (
			user_id TEXT PRIMARY KEY,
			level INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
			score INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0),
			total_xp INTEGER NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
			hearts INTEGER NOT NULL DEFAULT 3,
			last_login_day TEXT,
			inventory TEXT NOT NULL DEFAULT '[]',
			earned_badges TEXT NOT NULL DEFAULT '[]',
			display_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ,
			version BIGINT NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS habits (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			target_days INTEGER NOT NULL DEFAULT 21 CHECK (target_days >= 1),
			is_indefinite BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL DEFAULT 'active',
			created_on_day TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			version BIGINT NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS habit_days (
			habit_id TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
			day_key TEXT NOT NULL,
			PRIMARY KEY (habit_id, day_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_progress_total_xp ON user_progress(total_xp DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", classifyPgErr(err))
	}
	return &pgTx{ctx: ctx, tx: tx}, nil
}

func (s *PostgresStore) TopByXP(ctx context.Context, limit int) ([]model.UserProgress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+progressColumns+`
		FROM user_progress
		ORDER BY total_xp DESC, level DESC, user_id ASC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("progress top: %w", err)
	}
	defer rows.Close()

	var out []model.UserProgress
	for rows.Next() {
		p, err := scanPgProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("progress top rows: %w", err)
	}
	return out, nil
}

// classifyPgErr maps serialization failures, deadlocks and unique
// violations on first insert to ErrConflict.
func classifyPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}

func scanPgProgress(row pgx.Row) (*model.UserProgress, error) {
	var (
		p         model.UserProgress
		lastLogin *string
		inventory string
		badges    string
		updatedAt *time.Time
	)
	if err := row.Scan(
		&p.UserID, &p.Level, &p.Score, &p.TotalXP, &p.Hearts, &lastLogin, &inventory, &badges,
		&p.Profile.DisplayName, &p.Profile.Email, &p.Profile.PhotoURL, &updatedAt, &p.Version,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("progress scan: %w", err)
	}
	p.LastLoginDayKey = lastLogin
	if updatedAt != nil {
		p.UpdatedAt = *updatedAt
	}
	var err error
	if p.Inventory, err = decodeList(inventory); err != nil {
		return nil, err
	}
	if p.EarnedBadges, err = decodeList(badges); err != nil {
		return nil, err
	}
	return &p, nil
}

type pgTx struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *pgTx) GetProgress(ctx context.Context, userID string) (*model.UserProgress, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1`, userID)
	return scanPgProgress(row)
}

func (t *pgTx) InsertProgress(ctx context.Context, p *model.UserProgress) error {
	inv, err := encodeList(p.Inventory)
	if err != nil {
		return err
	}
	badges, err := encodeList(p.EarnedBadges)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = t.tx.Exec(ctx, `
		INSERT INTO user_progress (`+progressColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
	`, p.UserID, p.Level, p.Score, p.TotalXP, p.Hearts, p.LastLoginDayKey, inv, badges,
		p.Profile.DisplayName, p.Profile.Email, p.Profile.PhotoURL, now)
	if err != nil {
		return fmt.Errorf("progress insert: %w", classifyPgErr(err))
	}
	p.Version = 1
	p.UpdatedAt = now
	return nil
}

func (t *pgTx) PutProgress(ctx context.Context, p *model.UserProgress) error {
	inv, err := encodeList(p.Inventory)
	if err != nil {
		return err
	}
	badges, err := encodeList(p.EarnedBadges)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	tag, err := t.tx.Exec(ctx, `
		UPDATE user_progress
		SET level = $1, score = $2, total_xp = $3, hearts = $4, last_login_day = $5,
			inventory = $6, earned_badges = $7, display_name = $8, email = $9, photo_url = $10,
			updated_at = $11, version = version + 1
		WHERE user_id = $12 AND version = $13
	`, p.Level, p.Score, p.TotalXP, p.Hearts, p.LastLoginDayKey, inv, badges,
		p.Profile.DisplayName, p.Profile.Email, p.Profile.PhotoURL, now, p.UserID, p.Version)
	if err != nil {
		return fmt.Errorf("progress update: %w", classifyPgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("progress %s version %d: %w", p.UserID, p.Version, ErrConflict)
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func (t *pgTx) habitDays(ctx context.Context, habitID string) ([]string, error) {
	rows, err := t.tx.Query(ctx, `SELECT day_key FROM habit_days WHERE habit_id = $1 ORDER BY day_key ASC`, habitID)
	if err != nil {
		return nil, fmt.Errorf("habit days list: %w", err)
	}
	days, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("habit days rows: %w", err)
	}
	if days == nil {
		days = []string{}
	}
	return days, nil
}

func scanPgHabit(row pgx.Row) (*model.Habit, error) {
	var (
		h         model.Habit
		status    string
		createdOn *string
	)
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.TargetDays, &h.IsIndefinite, &status, &createdOn, &h.CreatedAt, &h.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("habit scan: %w", err)
	}
	h.Status = model.HabitStatus(status)
	h.CreatedOnDayKey = createdOn
	return &h, nil
}

func (t *pgTx) GetHabit(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1 AND user_id = $2`, habitID, userID)
	h, err := scanPgHabit(row)
	if err != nil {
		return nil, err
	}
	if h.CompletedDates, err = t.habitDays(ctx, h.ID); err != nil {
		return nil, err
	}
	return h, nil
}

func (t *pgTx) ListHabits(ctx context.Context, userID string) ([]model.Habit, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+habitColumns+` FROM habits WHERE user_id = $1 ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("habit list: %w", err)
	}
	var out []model.Habit
	for rows.Next() {
		h, err := scanPgHabit(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("habit list rows: %w", err)
	}

	for i := range out {
		days, err := t.habitDays(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].CompletedDates = days
	}
	return out, nil
}

func (t *pgTx) InsertHabit(ctx context.Context, h *model.Habit) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Status == "" {
		h.Status = model.HabitActive
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
	`, h.ID, h.UserID, h.Name, h.TargetDays, h.IsIndefinite, string(h.Status), h.CreatedOnDayKey, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("habit insert: %w", classifyPgErr(err))
	}
	if err := t.writeDays(ctx, h); err != nil {
		return err
	}
	h.Version = 1
	return nil
}

func (t *pgTx) PutHabit(ctx context.Context, h *model.Habit) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE habits
		SET name = $1, target_days = $2, is_indefinite = $3, status = $4, version = version + 1
		WHERE id = $5 AND user_id = $6 AND version = $7
	`, h.Name, h.TargetDays, h.IsIndefinite, string(h.Status), h.ID, h.UserID, h.Version)
	if err != nil {
		return fmt.Errorf("habit update: %w", classifyPgErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("habit %s version %d: %w", h.ID, h.Version, ErrConflict)
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM habit_days WHERE habit_id = $1`, h.ID); err != nil {
		return fmt.Errorf("habit days clear: %w", err)
	}
	if err := t.writeDays(ctx, h); err != nil {
		return err
	}
	h.Version++
	return nil
}

func (t *pgTx) writeDays(ctx context.Context, h *model.Habit) error {
	if len(h.CompletedDates) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, d := range h.CompletedDates {
		batch.Queue(`INSERT INTO habit_days (habit_id, day_key) VALUES ($1, $2)`, h.ID, d)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("habit days insert: %w", classifyPgErr(err))
	}
	return nil
}

func (t *pgTx) Commit() error {
	if err := t.tx.Commit(t.ctx); err != nil {
		return fmt.Errorf("commit tx: %w", classifyPgErr(err))
	}
	return nil
}

func (t *pgTx) Rollback() error {
	if err := t.tx.Rollback(t.ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}
