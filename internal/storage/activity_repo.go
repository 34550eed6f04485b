package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Activity is one entry in a user's feed.
type Activity struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Payload   string
	CreatedAt time.Time
}

type ActivityRepo struct {
	db *sql.DB
}

func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Insert(ctx context.Context, a *Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activities (id, user_id, type, title, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.Type, a.Title, a.Payload, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("activity insert: %w", err)
	}
	return nil
}

// ListRecent returns the user's newest activities first.
func (r *ActivityRepo) ListRecent(ctx context.Context, userID string, limit int) ([]Activity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, payload, created_at
		FROM activities
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("activity list: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var (
			a       Activity
			payload sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &a.Title, &payload, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("activity scan: %w", err)
		}
		a.Payload = payload.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity rows: %w", err)
	}
	return out, nil
}

func (r *ActivityRepo) CountByType(ctx context.Context, userID, typ string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM activities
		WHERE user_id = ? AND type = ?
	`, userID, typ)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("activity count: %w", err)
	}
	return n, nil
}
