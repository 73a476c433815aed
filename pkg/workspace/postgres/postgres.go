// Package postgres provides a workspace.RecordStore backed by a PostgreSQL
// "workspaces" table, the shape hosted record stores expose.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papercomputeco/localchat/pkg/workspace"
)

// Store persists workspace records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to databaseURL and ensures the schema exists.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workspaces (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			model_id TEXT NOT NULL,
			model_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_used TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS idx_workspaces_user_last_used ON workspaces (user_id, last_used DESC NULLS LAST);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]workspace.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, name, model_id, model_name, created_at, last_used
		 FROM workspaces WHERE user_id=$1 ORDER BY last_used DESC NULLS LAST`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query workspaces: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (workspace.Record, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan workspaces: %w", err)
	}
	return items, nil
}

func (s *Store) Insert(ctx context.Context, rec workspace.Record) (workspace.Record, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO workspaces (user_id, name, model_id, model_name, created_at, last_used)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id::text, user_id, name, model_id, model_name, created_at, last_used`,
		rec.UserID,
		rec.Name,
		rec.ModelID,
		rec.ModelName,
		rec.CreatedAt,
		rec.LastUsed,
	)

	inserted, err := scanRecord(row)
	if err != nil {
		return workspace.Record{}, fmt.Errorf("insert workspace: %w", err)
	}
	return inserted, nil
}

func (s *Store) UpdateLastUsed(ctx context.Context, ownerID, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE workspaces SET last_used = GREATEST(last_used, $3)
		 WHERE id::text=$1 AND user_id=$2`,
		id, ownerID, at,
	)
	if err != nil {
		return fmt.Errorf("update last used: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM workspaces WHERE id::text=$1 AND user_id=$2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.Row) (workspace.Record, error) {
	var rec workspace.Record
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.ModelID, &rec.ModelName, &rec.CreatedAt, &rec.LastUsed); err != nil {
		return workspace.Record{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.LastUsed != nil {
		t := rec.LastUsed.UTC()
		rec.LastUsed = &t
	}
	return rec, nil
}
