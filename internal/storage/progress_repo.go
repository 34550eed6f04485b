package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"habitforge/internal/model"
)

const progressColumns = `user_id, level, score, total_xp, hearts, last_login_day, inventory, earned_badges,
	display_name, email, photo_url, updated_at, version`

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(row scanner) (*model.UserProgress, error) {
	var (
		p         model.UserProgress
		lastLogin sql.NullString
		inventory string
		badges    string
		updatedAt sql.NullTime
	)
	if err := row.Scan(
		&p.UserID, &p.Level, &p.Score, &p.TotalXP, &p.Hearts, &lastLogin, &inventory, &badges,
		&p.Profile.DisplayName, &p.Profile.Email, &p.Profile.PhotoURL, &updatedAt, &p.Version,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("progress scan: %w", err)
	}

	if lastLogin.Valid {
		v := lastLogin.String
		p.LastLoginDayKey = &v
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
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

func sqliteGetProgress(ctx context.Context, q queryer, userID string) (*model.UserProgress, error) {
	row := q.QueryRowContext(ctx, `SELECT `+progressColumns+` FROM user_progress WHERE user_id = ?`, userID)
	return scanProgress(row)
}

func sqliteInsertProgress(ctx context.Context, q queryer, p *model.UserProgress) error {
	inv, err := encodeList(p.Inventory)
	if err != nil {
		return err
	}
	badges, err := encodeList(p.EarnedBadges)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = q.ExecContext(ctx, `
		INSERT INTO user_progress (`+progressColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, p.UserID, p.Level, p.Score, p.TotalXP, p.Hearts, p.LastLoginDayKey, inv, badges,
		p.Profile.DisplayName, p.Profile.Email, p.Profile.PhotoURL, now)
	if err != nil {
		return fmt.Errorf("progress insert: %w", classifySQLiteErr(err))
	}
	p.Version = 1
	p.UpdatedAt = now
	return nil
}

func sqliteUpdateProgress(ctx context.Context, q queryer, p *model.UserProgress) error {
	inv, err := encodeList(p.Inventory)
	if err != nil {
		return err
	}
	badges, err := encodeList(p.EarnedBadges)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE user_progress
		SET level = ?, score = ?, total_xp = ?, hearts = ?, last_login_day = ?,
			inventory = ?, earned_badges = ?, display_name = ?, email = ?, photo_url = ?,
			updated_at = ?, version = version + 1
		WHERE user_id = ? AND version = ?
	`, p.Level, p.Score, p.TotalXP, p.Hearts, p.LastLoginDayKey, inv, badges,
		p.Profile.DisplayName, p.Profile.Email, p.Profile.PhotoURL, now, p.UserID, p.Version)
	if err != nil {
		return fmt.Errorf("progress update: %w", classifySQLiteErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("progress rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("progress %s version %d: %w", p.UserID, p.Version, ErrConflict)
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func sqliteTopByXP(ctx context.Context, q queryer, limit int) ([]model.UserProgress, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+progressColumns+`
		FROM user_progress
		ORDER BY total_xp DESC, level DESC, user_id ASC
		LIMIT ?
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("progress top: %w", err)
	}
	defer rows.Close()

	var out []model.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
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
