package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/kyosan/pkg/config"
	"mercator-hq/kyosan/pkg/evidence"
)

// DefaultQueryLimit caps queries that do not set a limit.
const DefaultQueryLimit = 100

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         config.DefaultEvidenceSQLitePath,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteConfigFrom maps the evidence section of the service configuration.
func SQLiteConfigFrom(cfg config.SQLiteConfig) *SQLiteConfig {
	return &SQLiteConfig{
		Path:         cfg.Path,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		WALMode:      cfg.WALMode,
		BusyTimeout:  cfg.BusyTimeout,
	}
}

// SQLiteStorage implements evidence.Storage on SQLite.
type SQLiteStorage struct {
	db         *sql.DB
	config     *SQLiteConfig
	insertStmt *sql.Stmt
	logger     *slog.Logger
}

var _ evidence.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens the database, enables WAL mode if configured and
// creates the schema.
func NewSQLiteStorage(cfg *SQLiteConfig) (*SQLiteStorage, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "evidence.storage.sqlite")

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "open", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return evidence.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	if s.config.BusyTimeout > 0 {
		pragma := fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(pragma); err != nil {
			return evidence.NewStorageError("sqlite", "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return evidence.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare("INSERT INTO decisions (" + columns + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", 21), ", ") + ")")
	if err != nil {
		return evidence.NewStorageError("sqlite", "prepare_insert", err)
	}
	s.insertStmt = stmt

	return nil
}

// Store persists a decision record.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.DecisionRecord) error {
	stageStatuses, _ := json.Marshal(record.StageStatuses)
	activeSystems, _ := json.Marshal(record.ActiveSystems)
	pluginFaults, _ := json.Marshal(record.PluginFaults)

	_, err := s.insertStmt.ExecContext(ctx,
		record.ID, record.RequestID, record.ConversationID,
		record.Timestamp.UTC(), record.RecordedTime.UTC(),
		record.InputHash,
		record.Level, record.Disposition, record.OverallCompliant,
		nullString(record.BlockingLaw), nullString(record.BlockingPhase), nullString(record.BlockingReason),
		string(stageStatuses),
		string(activeSystems), string(pluginFaults),
		record.GeneratorUsed, nullString(record.GeneratorError), record.Synthesized, record.OutputModified,
		record.RulesetVersion, record.Duration.Microseconds(),
	)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.DecisionRecord, error) {
	sqlQuery, args := s.buildSelect(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*evidence.DecisionRecord{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, evidence.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// QueryStream streams matching records through a channel.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.DecisionRecord, <-chan error, error) {
	recordsCh := make(chan *evidence.DecisionRecord, 100)
	errCh := make(chan error, 1)

	sqlQuery, args := s.buildSelect(query)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRow(rows)
			if err != nil {
				errCh <- evidence.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters. Pagination and sorting
// are ignored.
func (s *SQLiteStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError("sqlite", "close", err)
	}

	s.logger.Info("SQLite storage closed")
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return evidence.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

func (s *SQLiteStorage) buildSelect(query *evidence.Query) (string, []any) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT " + columns + " FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	sortBy, ok := sortColumns[query.SortBy]
	if !ok {
		sortBy = "timestamp"
	}
	sortOrder := "DESC"
	if strings.EqualFold(query.SortOrder, "asc") {
		sortOrder = "ASC"
	}
	// id breaks ties so pagination is stable.
	sqlQuery += fmt.Sprintf(" ORDER BY %s %s, id %s", sortBy, sortOrder, sortOrder)

	limit := DefaultQueryLimit
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	return sqlQuery, args
}

// buildWhereClause returns the WHERE clause (without the keyword) and its
// arguments.
func buildWhereClause(query *evidence.Query) (string, []any) {
	var conditions []string
	var args []any

	if query.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.StartTime.UTC())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, query.EndTime.UTC())
	}

	if len(query.IDs) > 0 {
		conditions = append(conditions, "id IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(query.IDs)), ", ")+")")
		for _, id := range query.IDs {
			args = append(args, id)
		}
	}
	if query.ConversationID != "" {
		conditions = append(conditions, "conversation_id = ?")
		args = append(args, query.ConversationID)
	}

	if query.Compliant != nil {
		conditions = append(conditions, "overall_compliant = ?")
		args = append(args, *query.Compliant)
	}
	if query.BlockingLaw != "" {
		conditions = append(conditions, "blocking_law = ?")
		args = append(args, query.BlockingLaw)
	}
	if query.Level != "" {
		conditions = append(conditions, "processing_level = ?")
		args = append(args, query.Level)
	}
	if query.Disposition != "" {
		conditions = append(conditions, "disposition = ?")
		args = append(args, query.Disposition)
	}

	return strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*evidence.DecisionRecord, error) {
	var record evidence.DecisionRecord
	var blockingLaw, blockingPhase, blockingReason, generatorError sql.NullString
	var stageStatuses, activeSystems, pluginFaults string
	var durationUs int64

	err := rows.Scan(
		&record.ID, &record.RequestID, &record.ConversationID,
		&record.Timestamp, &record.RecordedTime,
		&record.InputHash,
		&record.Level, &record.Disposition, &record.OverallCompliant,
		&blockingLaw, &blockingPhase, &blockingReason,
		&stageStatuses,
		&activeSystems, &pluginFaults,
		&record.GeneratorUsed, &generatorError, &record.Synthesized, &record.OutputModified,
		&record.RulesetVersion, &durationUs,
	)
	if err != nil {
		return nil, err
	}

	record.BlockingLaw = blockingLaw.String
	record.BlockingPhase = blockingPhase.String
	record.BlockingReason = blockingReason.String
	record.GeneratorError = generatorError.String
	record.Duration = time.Duration(durationUs) * time.Microsecond

	if stageStatuses != "" {
		if err := json.Unmarshal([]byte(stageStatuses), &record.StageStatuses); err != nil {
			return nil, fmt.Errorf("stage_statuses: %w", err)
		}
	}
	if activeSystems != "" {
		if err := json.Unmarshal([]byte(activeSystems), &record.ActiveSystems); err != nil {
			return nil, fmt.Errorf("active_systems: %w", err)
		}
	}
	if pluginFaults != "" && pluginFaults != "null" {
		if err := json.Unmarshal([]byte(pluginFaults), &record.PluginFaults); err != nil {
			return nil, fmt.Errorf("plugin_faults: %w", err)
		}
	}

	return &record, nil
}

// nullString stores empty optional text as NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
