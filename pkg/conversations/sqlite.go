package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteBackend = "sqlite"

const conversationsSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	status TEXT,
	metadata TEXT,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (conversation_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);
`

// SQLiteStore keeps conversations in a SQLite database using the pure-Go
// modernc.org/sqlite driver. Timestamps are stored as Unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB

	listStmt     *sql.Stmt
	getStmt      *sql.Stmt
	messagesStmt *sql.Stmt

	// now is replaced in tests.
	now func() time.Time
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, &StoreError{Backend: sqliteBackend, Operation: "open", Cause: errors.New("db path cannot be empty")}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StoreError{Backend: sqliteBackend, Operation: "open", Cause: err}
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, &StoreError{Backend: sqliteBackend, Operation: "open", Cause: err}
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec(conversationsSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	var err error
	s.listStmt, err = s.db.Prepare(`
		SELECT c.id, c.name, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		ORDER BY c.updated_at DESC, c.id ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`SELECT id, name, created_at, updated_at FROM conversations WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.messagesStmt, err = s.db.Prepare(`
		SELECT id, role, content, status, metadata, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY seq ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare messages statement: %w", err)
	}
	return nil
}

// List returns every conversation, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, &StoreError{Backend: sqliteBackend, Operation: "list", Cause: err}
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var (
			sum              Summary
			created, updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &created, &updated, &sum.MessageCount); err != nil {
			return nil, &StoreError{Backend: sqliteBackend, Operation: "list", Cause: err}
		}
		sum.CreatedAt = fromNanos(created)
		sum.UpdatedAt = fromNanos(updated)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Backend: sqliteBackend, Operation: "list", Cause: err}
	}
	return summaries, nil
}

// Get returns a conversation with its messages in order.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Conversation, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var (
		conv             Conversation
		created, updated int64
	)
	err := s.getStmt.QueryRowContext(ctx, id).Scan(&conv.ID, &conv.Name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Backend: sqliteBackend, Operation: "get", Cause: err}
	}
	conv.CreatedAt = fromNanos(created)
	conv.UpdatedAt = fromNanos(updated)

	conv.Messages, err = s.loadMessages(ctx, id)
	if err != nil {
		return nil, &StoreError{Backend: sqliteBackend, Operation: "get", Cause: err}
	}
	return &conv, nil
}

func (s *SQLiteStore) loadMessages(ctx context.Context, id string) ([]Message, error) {
	rows, err := s.messagesStmt.QueryContext(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var (
			m                Message
			status, metadata sql.NullString
			created          int64
		)
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &status, &metadata, &created); err != nil {
			return nil, err
		}
		m.Status = status.String
		m.CreatedAt = fromNanos(created)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of message %s: %w", m.ID, err)
			}
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Create inserts a new conversation and its messages in one transaction.
func (s *SQLiteStore) Create(ctx context.Context, name string, messages []Message) (*Conversation, error) {
	now := s.now().UTC()
	id := uuid.NewString()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			id, nameOrDefault(name), now.UnixNano(), now.UnixNano())
		if err != nil {
			return err
		}
		return insertMessages(ctx, tx, id, 0, prepareMessages(messages, now))
	})
	if err != nil {
		return nil, &StoreError{Backend: sqliteBackend, Operation: "create", Cause: err}
	}
	return s.Get(ctx, id)
}

// Update replaces the messages, and the name when name is not empty.
func (s *SQLiteStore) Update(ctx context.Context, id, name string, messages []Message) (*Conversation, error) {
	return s.modify(ctx, "update", id, func(tx *sql.Tx, now time.Time) error {
		if name != "" {
			if _, err := tx.ExecContext(ctx, `UPDATE conversations SET name = ? WHERE id = ?`, name, id); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
			return err
		}
		return insertMessages(ctx, tx, id, 0, prepareMessages(messages, now))
	})
}

// Append adds messages after the existing ones.
func (s *SQLiteStore) Append(ctx context.Context, id string, messages ...Message) (*Conversation, error) {
	return s.modify(ctx, "append", id, func(tx *sql.Tx, now time.Time) error {
		var next int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq) + 1, 0) FROM messages WHERE conversation_id = ?`, id).Scan(&next)
		if err != nil {
			return err
		}
		return insertMessages(ctx, tx, id, next, prepareMessages(messages, now))
	})
}

func (s *SQLiteStore) modify(ctx context.Context, op, id string, apply func(*sql.Tx, time.Time) error) (*Conversation, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, now.UnixNano(), id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		return apply(tx, now)
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Backend: sqliteBackend, Operation: op, Cause: err}
	}
	return s.Get(ctx, id)
}

// Delete removes a conversation and its messages.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return &StoreError{Backend: sqliteBackend, Operation: "delete", Cause: err}
	}
	return nil
}

// Close closes prepared statements and the database.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.listStmt, s.getStmt, s.messagesStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertMessages(ctx context.Context, tx *sql.Tx, conversationID string, seq int, messages []Message) error {
	for i, m := range messages {
		var metadata sql.NullString
		if len(m.Metadata) > 0 {
			data, err := json.Marshal(m.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata of message %s: %w", m.ID, err)
			}
			metadata = sql.NullString{String: string(data), Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, seq, id, role, content, status, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			conversationID, seq+i, m.ID, m.Role, m.Content,
			sql.NullString{String: m.Status, Valid: m.Status != ""}, metadata, m.CreatedAt.UnixNano())
		if err != nil {
			return err
		}
	}
	return nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
