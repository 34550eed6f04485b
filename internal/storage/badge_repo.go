package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// BadgeRecord is a badge catalog row as stored. XPReward is nil when the
// row leaves the reward to the catalog default.
type BadgeRecord struct {
	ID             string
	Position       int
	Name           string
	Description    string
	Icon           string
	ConditionType  string
	ConditionValue int
	XPReward       *int
}

type BadgeRepo struct {
	db *sql.DB
}

func NewBadgeRepo(db *sql.DB) *BadgeRepo {
	return &BadgeRepo{db: db}
}

// List returns the catalog in evaluation order.
func (r *BadgeRepo) List(ctx context.Context) ([]BadgeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, position, name, description, icon, condition_type, condition_value, xp_reward
		FROM badge_definitions
		ORDER BY position ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("badge list: %w", err)
	}
	defer rows.Close()

	var out []BadgeRecord
	for rows.Next() {
		var (
			b  BadgeRecord
			xp sql.NullInt64
		)
		if err := rows.Scan(&b.ID, &b.Position, &b.Name, &b.Description, &b.Icon, &b.ConditionType, &b.ConditionValue, &xp); err != nil {
			return nil, fmt.Errorf("badge scan: %w", err)
		}
		if xp.Valid {
			v := int(xp.Int64)
			b.XPReward = &v
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("badge rows: %w", err)
	}
	return out, nil
}

func (r *BadgeRepo) Upsert(ctx context.Context, b BadgeRecord) error {
	return upsertBadge(ctx, r.db, b)
}

// ReplaceAll swaps the whole catalog in one transaction, numbering
// positions by slice order.
func (r *BadgeRepo) ReplaceAll(ctx context.Context, records []BadgeRecord) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM badge_definitions`); err != nil {
			return fmt.Errorf("badge clear: %w", err)
		}
		for i, b := range records {
			b.Position = i
			if err := upsertBadge(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BadgeRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM badge_definitions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("badge delete: %w", err)
	}
	return nil
}

func upsertBadge(ctx context.Context, q queryer, b BadgeRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO badge_definitions (id, position, name, description, icon, condition_type, condition_value, xp_reward)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position,
			name = excluded.name,
			description = excluded.description,
			icon = excluded.icon,
			condition_type = excluded.condition_type,
			condition_value = excluded.condition_value,
			xp_reward = excluded.xp_reward
	`, b.ID, b.Position, b.Name, b.Description, b.Icon, b.ConditionType, b.ConditionValue, b.XPReward)
	if err != nil {
		return fmt.Errorf("badge upsert: %w", err)
	}
	return nil
}
