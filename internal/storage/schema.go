package storage

import (
	"context"
	"database/sql"
	"fmt"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_progress (
			user_id TEXT PRIMARY KEY,
			level INTEGER NOT NULL DEFAULT 1,
			score INTEGER NOT NULL DEFAULT 0,
			total_xp INTEGER NOT NULL DEFAULT 0,
			hearts INTEGER NOT NULL DEFAULT 3,
			last_login_day TEXT,
			inventory TEXT NOT NULL DEFAULT '[]',
			earned_badges TEXT NOT NULL DEFAULT '[]',
			display_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			updated_at DATETIME,
			version INTEGER NOT NULL DEFAULT 1,
			CHECK (level >= 1),
			CHECK (score >= 0),
			CHECK (total_xp >= 0)
		);`,
		`CREATE TABLE IF NOT EXISTS habits (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			target_days INTEGER NOT NULL DEFAULT 21,
			is_indefinite INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			created_on_day TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			version INTEGER NOT NULL DEFAULT 1,
			CHECK (target_days >= 1)
		);`,
		// One row per completed day; the primary key enforces day uniqueness.
		`CREATE TABLE IF NOT EXISTS habit_days (
			habit_id TEXT NOT NULL,
			day_key TEXT NOT NULL,
			PRIMARY KEY (habit_id, day_key),
			FOREIGN KEY(habit_id) REFERENCES habits(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS badge_definitions (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL DEFAULT 0,
			name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			condition_type TEXT NOT NULL,
			condition_value INTEGER NOT NULL,
			xp_reward INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			payload TEXT,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_habits_user_id ON habits(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_user_progress_total_xp ON user_progress(total_xp DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user_created ON activities(user_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
