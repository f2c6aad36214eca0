// Package evidence is the decision audit trail. Every orchestration can be
// recorded as an immutable DecisionRecord: which laws passed or failed, which
// systems took part, where the response came from and which ruleset version
// decided it. The raw input is never stored, only its SHA-256 hash.
//
// # Layers
//
//  1. recorder: builds records from orchestration results and writes them
//     asynchronously through a buffered channel
//  2. storage: SQLite (WAL mode) and in-memory backends
//  3. retention: age and count based pruning on a cron schedule
//  4. query and export: filter validation plus JSON and CSV output
//
// # Recording Flow
//
//	Orchestrator.Process → ExecutionResult
//	     ↓
//	recorder.Record (non-blocking up to the write timeout)
//	     ↓
//	background worker → Storage.Store
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:    "data/decisions.db",
//	    WALMode: true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig())
//	defer rec.Close()
//
//	result := orch.Process(ctx, input, evalCtx, level)
//	_ = rec.Record(ctx, recorder.Entry{Input: input, Result: result})
//
// # Querying
//
//	blocked := false
//	records, err := store.Query(ctx, &evidence.Query{
//	    Compliant:   &blocked,
//	    BlockingLaw: "first",
//	    Limit:       50,
//	})
//
// Storage errors are *StorageError, invalid queries *QueryError, and pruning
// failures *RetentionError. All of them unwrap to their cause.
package evidence
