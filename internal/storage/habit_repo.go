package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"habitforge/internal/model"
)

const habitColumns = `id, user_id, name, target_days, is_indefinite, status, created_on_day, created_at, version`

func scanHabit(row scanner) (*model.Habit, error) {
	var (
		h          model.Habit
		indefinite int
		status     string
		createdOn  sql.NullString
		createdAt  sql.NullTime
	)
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.TargetDays, &indefinite, &status, &createdOn, &createdAt, &h.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("habit scan: %w", err)
	}
	h.IsIndefinite = indefinite != 0
	h.Status = model.HabitStatus(status)
	if createdOn.Valid {
		v := createdOn.String
		h.CreatedOnDayKey = &v
	}
	if createdAt.Valid {
		h.CreatedAt = createdAt.Time
	}
	h.CompletedDates = []string{}
	return &h, nil
}

func sqliteHabitDays(ctx context.Context, q queryer, habitID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT day_key FROM habit_days WHERE habit_id = ? ORDER BY day_key ASC`, habitID)
	if err != nil {
		return nil, fmt.Errorf("habit days list: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("habit days scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("habit days rows: %w", err)
	}
	return out, nil
}

func sqliteGetHabit(ctx context.Context, q queryer, userID, habitID string) (*model.Habit, error) {
	row := q.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ? AND user_id = ?`, habitID, userID)
	h, err := scanHabit(row)
	if err != nil {
		return nil, err
	}
	if h.CompletedDates, err = sqliteHabitDays(ctx, q, h.ID); err != nil {
		return nil, err
	}
	return h, nil
}

func sqliteListHabits(ctx context.Context, q queryer, userID string) ([]model.Habit, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("habit list: %w", err)
	}

	var out []model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("habit list rows: %w", err)
	}
	// Close before issuing the per-habit queries; the pool has one connection.
	rows.Close()

	for i := range out {
		days, err := sqliteHabitDays(ctx, q, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].CompletedDates = days
	}
	return out, nil
}

func sqliteInsertHabit(ctx context.Context, q queryer, h *model.Habit) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Status == "" {
		h.Status = model.HabitActive
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, h.ID, h.UserID, h.Name, h.TargetDays, boolToInt(h.IsIndefinite), string(h.Status), h.CreatedOnDayKey, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("habit insert: %w", classifySQLiteErr(err))
	}
	for _, d := range h.CompletedDates {
		if _, err := q.ExecContext(ctx, `INSERT INTO habit_days (habit_id, day_key) VALUES (?, ?)`, h.ID, d); err != nil {
			return fmt.Errorf("habit day insert: %w", err)
		}
	}
	h.Version = 1
	return nil
}

// sqliteUpdateHabit bumps the habit version and rewrites its completed-day set.
func sqliteUpdateHabit(ctx context.Context, q queryer, h *model.Habit) error {
	res, err := q.ExecContext(ctx, `
		UPDATE habits
		SET name = ?, target_days = ?, is_indefinite = ?, status = ?, version = version + 1
		WHERE id = ? AND user_id = ? AND version = ?
	`, h.Name, h.TargetDays, boolToInt(h.IsIndefinite), string(h.Status), h.ID, h.UserID, h.Version)
	if err != nil {
		return fmt.Errorf("habit update: %w", classifySQLiteErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("habit rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("habit %s version %d: %w", h.ID, h.Version, ErrConflict)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM habit_days WHERE habit_id = ?`, h.ID); err != nil {
		return fmt.Errorf("habit days clear: %w", err)
	}
	for _, d := range h.CompletedDates {
		if _, err := q.ExecContext(ctx, `INSERT INTO habit_days (habit_id, day_key) VALUES (?, ?)`, h.ID, d); err != nil {
			return fmt.Errorf("habit day insert: %w", err)
		}
	}
	h.Version++
	return nil
}
