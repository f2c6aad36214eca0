package conversations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const fileBackend = "file"

// FileStore keeps one JSON document per conversation in a directory, named
// <id>.json. Writes go to a temporary file that is renamed into place.
type FileStore struct {
	dir    string
	mu     sync.RWMutex
	logger *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StoreError{Backend: fileBackend, Operation: "open", Cause: err}
	}
	return &FileStore{
		dir:    dir,
		logger: slog.Default().With("component", "conversations.file"),
		now:    time.Now,
	}, nil
}

// List reads every conversation file. Files that cannot be read or parsed
// are skipped with a warning.
func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &StoreError{Backend: fileBackend, Operation: "list", Cause: err}
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		conv, err := s.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.logger.Warn("skipping unreadable conversation file", "file", name, "error", err)
			continue
		}
		summaries = append(summaries, conv.Summarize())
	}

	sortSummaries(summaries)
	return summaries, nil
}

// Get returns the conversation stored under id.
func (s *FileStore) Get(ctx context.Context, id string) (*Conversation, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, err := s.read(id)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	return conv, nil
}

// Create writes a new conversation file.
func (s *FileStore) Create(ctx context.Context, name string, messages []Message) (*Conversation, error) {
	now := s.now().UTC()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Name:      nameOrDefault(name),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  prepareMessages(messages, now),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(conv); err != nil {
		return nil, s.wrap("create", err)
	}
	return conv, nil
}

// Update replaces the messages of an existing conversation.
func (s *FileStore) Update(ctx context.Context, id, name string, messages []Message) (*Conversation, error) {
	return s.modify("update", id, func(conv *Conversation, now time.Time) {
		if name != "" {
			conv.Name = name
		}
		conv.Messages = prepareMessages(messages, now)
	})
}

// Append adds messages to an existing conversation.
func (s *FileStore) Append(ctx context.Context, id string, messages ...Message) (*Conversation, error) {
	return s.modify("append", id, func(conv *Conversation, now time.Time) {
		conv.Messages = append(conv.Messages, prepareMessages(messages, now)...)
	})
}

func (s *FileStore) modify(op, id string, apply func(*Conversation, time.Time)) (*Conversation, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.read(id)
	if err != nil {
		return nil, s.wrap(op, err)
	}

	now := s.now().UTC()
	apply(conv, now)
	conv.UpdatedAt = now

	if err := s.write(conv); err != nil {
		return nil, s.wrap(op, err)
	}
	return conv, nil
}

// Delete removes the conversation file.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		return s.wrap("delete", err)
	}
	return nil
}

// Close is a no-op; every operation opens and closes its own files.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) read(id string) (*Conversation, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, err
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	if conv.ID == "" {
		conv.ID = id
	}
	if conv.Name == "" {
		conv.Name = DefaultName
	}
	if conv.Messages == nil {
		conv.Messages = []Message{}
	}
	return &conv, nil
}

func (s *FileStore) write(conv *Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", conv.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, conv.ID+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(conv.ID)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (s *FileStore) wrap(op string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return &StoreError{Backend: fileBackend, Operation: op, Cause: err}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

func nameOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultName
	}
	return name
}

// prepareMessages copies messages, filling in missing ids and timestamps.
func prepareMessages(messages []Message, now time.Time) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out[i] = m
	}
	return out
}

func sortSummaries(summaries []Summary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
}
