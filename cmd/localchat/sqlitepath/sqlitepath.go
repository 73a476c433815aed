// Package sqlitepath resolves where the local SQLite workspace database lives.
package sqlitepath

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDir is the directory under the user's home holding local state.
const DefaultDir = ".localchat"

// DefaultFile is the database file name inside DefaultDir.
const DefaultFile = "localchat.db"

// ResolveSQLitePath returns override when set, otherwise
// ~/.localchat/localchat.db.
func ResolveSQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}

	return filepath.Join(home, DefaultDir, DefaultFile), nil
}
