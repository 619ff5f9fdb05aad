package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables and indexes if they don't exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	createTopics := `
		CREATE TABLE IF NOT EXISTS ` + tables.Topics + ` (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			parent_id TEXT REFERENCES ` + tables.Topics + `(id) ON DELETE SET NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, parent_id, name)
		)
	`
	if _, err := pool.Exec(ctx, createTopics); err != nil {
		return fmt.Errorf("create %s: %w", tables.Topics, err)
	}

	createNotes := `
		CREATE TABLE IF NOT EXISTS ` + tables.Notes + ` (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			topic_id TEXT REFERENCES ` + tables.Topics + `(id) ON DELETE SET NULL,
			title TEXT NOT NULL,
			text TEXT NOT NULL DEFAULT '',
			url TEXT,
			image_url TEXT,
			is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
			attachments JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createNotes); err != nil {
		return fmt.Errorf("create %s: %w", tables.Notes, err)
	}

	// UNIQUE(user_id, parent_id, name) does not cover roots since NULLs are distinct
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tables.Prefix + `topics_root_unique ON ` + tables.Topics + `(user_id, name) WHERE parent_id IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Prefix + `topics_user_parent ON ` + tables.Topics + `(user_id, parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Prefix + `notes_user_updated ON ` + tables.Notes + `(user_id, updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tables.Prefix + `notes_user_topic ON ` + tables.Notes + `(user_id, topic_id)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}
