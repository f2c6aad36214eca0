package conversations

import (
	"fmt"
	"os"
	"path/filepath"

	"mercator-hq/kyosan/pkg/config"
)

// SQLiteFileName is the database file created under the configured path by
// the sqlite backend.
const SQLiteFileName = "conversations.db"

// Open returns the store selected by cfg.Backend. Path is a directory for
// both backends.
func Open(cfg config.ConversationsConfig) (Store, error) {
	path := cfg.Path
	if path == "" {
		path = config.DefaultConversationsPath
	}

	switch cfg.Backend {
	case "", "file":
		return NewFileStore(path)
	case "sqlite":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, &StoreError{Backend: sqliteBackend, Operation: "open", Cause: err}
		}
		return NewSQLiteStore(filepath.Join(path, SQLiteFileName))
	default:
		return nil, fmt.Errorf("unknown conversations backend %q", cfg.Backend)
	}
}
