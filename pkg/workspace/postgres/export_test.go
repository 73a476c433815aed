package postgres

import "context"

// Truncate empties the workspaces table between specs.
func Truncate(ctx context.Context, s *Store) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE workspaces`)
	return err
}
