package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateSchema creates the engine's tables and indexes if they do not exist.
// Idempotent; safe to run on every startup of the seed tool.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				project_id UUID NOT NULL,
				name TEXT NOT NULL,
				state TEXT NOT NULL DEFAULT 'draft',
				is_trunk BOOLEAN NOT NULL DEFAULT FALSE,
				base_branch_id UUID,
				base_marker TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.Branches),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s_trunk_idx
			ON %s (project_id) WHERE is_trunk
		`, tables.Branches, tables.Branches),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				branch_id UUID NOT NULL REFERENCES %s(id),
				slug TEXT NOT NULL,
				content_type TEXT NOT NULL DEFAULT 'article',
				current_version_id UUID,
				published_version_id UUID,
				source_item_id UUID,
				base_version_id UUID,
				merge_state TEXT NOT NULL DEFAULT 'clean',
				conflict_data JSONB,
				archived BOOLEAN NOT NULL DEFAULT FALSE,
				archived_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.ContentItems, tables.Branches),
		fmt.Sprintf(`
			CREATE UNIQUE INDEX IF NOT EXISTS %s_branch_slug_idx
			ON %s (branch_id, slug) WHERE NOT archived
		`, tables.ContentItems, tables.ContentItems),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				content_item_id UUID NOT NULL REFERENCES %s(id),
				body TEXT NOT NULL,
				format TEXT NOT NULL DEFAULT 'markdown',
				metadata JSONB NOT NULL DEFAULT '{}',
				author_id TEXT NOT NULL,
				authorship TEXT NOT NULL DEFAULT 'human',
				byte_size INTEGER NOT NULL,
				checksum TEXT NOT NULL,
				parent_version_id UUID,
				reverted_from_id UUID,
				change_description TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.ContentVersions, tables.ContentItems),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_item_idx
			ON %s (content_item_id, created_at DESC)
		`, tables.ContentVersions, tables.ContentVersions),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				branch_id UUID NOT NULL UNIQUE REFERENCES %s(id),
				entries JSONB NOT NULL DEFAULT '{}',
				captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.BranchSnapshots, tables.Branches),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				operation TEXT NOT NULL,
				source_branch_id UUID,
				target_branch_id UUID NOT NULL,
				content_item_id UUID NOT NULL,
				base_version_id UUID,
				source_version_id UUID,
				result_version_id UUID,
				had_conflict BOOLEAN NOT NULL DEFAULT FALSE,
				resolution TEXT,
				actor TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.MergeHistory),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_branch_idx
			ON %s (target_branch_id, created_at DESC)
		`, tables.MergeHistory, tables.MergeHistory),
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	return nil
}

// DropSchema drops the engine's tables. Used by the seed tool for a fresh
// start in dev/test environments only.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	// Reverse dependency order
	for _, table := range []string{
		tables.MergeHistory,
		tables.BranchSnapshots,
		tables.ContentVersions,
		tables.ContentItems,
		tables.Branches,
	} {
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, table)); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return nil
}
