package pgstore

import (
	"context"
	"fmt"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS programs (
    id   TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    doc  JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS stages (
    id         TEXT PRIMARY KEY,
    program_id TEXT NOT NULL,
    doc        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stages_program ON stages(program_id);

CREATE TABLE IF NOT EXISTS stage_templates (
    id  TEXT PRIMARY KEY,
    doc JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS processes (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    program_id TEXT NOT NULL,
    is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
    doc        JSONB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_processes_one_active
    ON processes(user_id, program_id) WHERE NOT is_deleted;

CREATE TABLE IF NOT EXISTS blocks (
    id  TEXT PRIMARY KEY,
    doc JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id  TEXT PRIMARY KEY,
    doc JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    doc         JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
`

// Migrate applies the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	var count int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM schema_version WHERE version = 1").Scan(&count)
	if err == nil && count > 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, schemaV1); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := tx.Exec(ctx, "INSERT INTO schema_version (version) VALUES (1) ON CONFLICT DO NOTHING"); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit(ctx)
}
