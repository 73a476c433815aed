// Package sqlite provides a workspace.RecordStore backed by a local SQLite
// database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/localchat/pkg/workspace"
)

const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	model_id    TEXT NOT NULL,
	model_name  TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	last_used   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_workspaces_user_last_used ON workspaces (user_id, last_used);
`

// Store persists workspace records in SQLite. Timestamps are stored as
// UTC unix nanoseconds so they order correctly as integers.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at path. Use ":memory:"
// for a private in-memory database.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]workspace.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, model_id, model_name, created_at, last_used
		FROM workspaces
		WHERE user_id = ?
		ORDER BY last_used IS NULL, last_used DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	items := make([]workspace.Record, 0)
	for rows.Next() {
		var (
			rec       workspace.Record
			createdAt int64
			lastUsed  sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.ModelID, &rec.ModelName, &createdAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		if lastUsed.Valid {
			t := time.Unix(0, lastUsed.Int64).UTC()
			rec.LastUsed = &t
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspaces: %w", err)
	}
	return items, nil
}

func (s *Store) Insert(ctx context.Context, rec workspace.Record) (workspace.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	var lastUsed sql.NullInt64
	if rec.LastUsed != nil {
		lastUsed = sql.NullInt64{Int64: rec.LastUsed.UnixNano(), Valid: true}
		t := rec.LastUsed.UTC()
		rec.LastUsed = &t
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, user_id, name, model_id, model_name, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.Name, rec.ModelID, rec.ModelName, rec.CreatedAt.UnixNano(), lastUsed)
	if err != nil {
		return workspace.Record{}, fmt.Errorf("insert workspace: %w", err)
	}
	return rec, nil
}

func (s *Store) UpdateLastUsed(ctx context.Context, ownerID, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workspaces SET last_used = ?
		WHERE id = ? AND user_id = ? AND (last_used IS NULL OR last_used < ?)
	`, at.UnixNano(), id, ownerID, at.UnixNano())
	if err != nil {
		return fmt.Errorf("update last used: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
