package governance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/kyosan/pkg/evidence"
)

const traceSchema = `
CREATE TABLE IF NOT EXISTS trace_entries (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    timestamp_ns INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    description TEXT NOT NULL,
    proposal_id TEXT,
    data TEXT,
    user_confirmation INTEGER
);

CREATE INDEX IF NOT EXISTS idx_trace_entries_proposal ON trace_entries(proposal_id);
`

// SQLiteRegister persists the TRACE register in SQLite.
type SQLiteRegister struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Register = (*SQLiteRegister)(nil)

// NewSQLiteRegister opens the database at path in WAL mode and creates the
// schema.
func NewSQLiteRegister(path string) (*SQLiteRegister, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "open", err)
	}

	for _, stmt := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;", traceSchema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, evidence.NewStorageError("sqlite", "initialize", err)
		}
	}

	logger := slog.Default().With("component", "governance.register")
	logger.Info("TRACE register initialized", "path", path)
	return &SQLiteRegister{db: db, logger: logger}, nil
}

// Append stores entry.
func (r *SQLiteRegister) Append(ctx context.Context, entry *TraceEntry) error {
	var data sql.NullString
	if len(entry.Data) > 0 {
		b, err := json.Marshal(entry.Data)
		if err != nil {
			return fmt.Errorf("encode trace data: %w", err)
		}
		data = sql.NullString{String: string(b), Valid: true}
	}
	var confirmed sql.NullBool
	if entry.UserConfirmation != nil {
		confirmed = sql.NullBool{Bool: *entry.UserConfirmation, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trace_entries (id, timestamp_ns, event_type, description, proposal_id, data, user_confirmation)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UnixNano(), entry.Event, entry.Description,
		sql.NullString{String: entry.ProposalID, Valid: entry.ProposalID != ""},
		data, confirmed,
	)
	if err != nil {
		return evidence.NewStorageError("sqlite", "append_trace", err)
	}
	return nil
}

// Recent returns up to limit of the newest entries, oldest first.
func (r *SQLiteRegister) Recent(ctx context.Context, limit int) ([]*TraceEntry, error) {
	if limit <= 0 {
		limit = DefaultTraceLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, timestamp_ns, event_type, description, proposal_id, data, user_confirmation
		 FROM (SELECT * FROM trace_entries ORDER BY seq DESC LIMIT ?)
		 ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "recent_trace", err)
	}
	defer rows.Close()

	entries := []*TraceEntry{}
	for rows.Next() {
		var (
			e          TraceEntry
			ts         int64
			proposalID sql.NullString
			data       sql.NullString
			confirmed  sql.NullBool
		)
		if err := rows.Scan(&e.ID, &ts, &e.Event, &e.Description, &proposalID, &data, &confirmed); err != nil {
			return nil, evidence.NewStorageError("sqlite", "scan_trace", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		e.ProposalID = proposalID.String
		if data.Valid {
			if err := json.Unmarshal([]byte(data.String), &e.Data); err != nil {
				return nil, fmt.Errorf("decode trace data for %s: %w", e.ID, err)
			}
		}
		if confirmed.Valid {
			v := confirmed.Bool
			e.UserConfirmation = &v
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError("sqlite", "recent_trace", err)
	}
	return entries, nil
}

// Close closes the database.
func (r *SQLiteRegister) Close() error {
	if err := r.db.Close(); err != nil {
		return evidence.NewStorageError("sqlite", "close", err)
	}
	return nil
}
