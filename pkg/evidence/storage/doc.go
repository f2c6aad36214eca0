// Package storage provides the decision record backends.
//
//   - SQLiteStorage: durable storage on github.com/mattn/go-sqlite3 with WAL
//     mode, a busy timeout, a prepared insert statement and indexes on the
//     filtered columns
//   - MemoryStorage: a map guarded by a RWMutex, for tests and the "memory"
//     backend
//
// Both backends sort by timestamp descending unless the query says otherwise
// and return at most DefaultQueryLimit records when no limit is set.
//
//	store, err := storage.NewSQLiteStorage(storage.SQLiteConfigFrom(cfg.Evidence.SQLite))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package storage
