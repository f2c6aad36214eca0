package conversations

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/kyosan/pkg/config"
)

// clock returns a function yielding strictly increasing times.
func clock() func() time.Time {
	t := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("file", func(t *testing.T) {
		s, err := NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}
		s.now = clock()
		fn(t, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "conv.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore failed: %v", err)
		}
		defer s.Close()
		s.now = clock()
		fn(t, s)
	})
}

func TestStore_CreateAndGet(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		conv, err := s.Create(ctx, "", []Message{
			{Role: RoleUser, Content: "Should I help my neighbour?"},
			{Role: RoleAssistant, Content: "Yes.", Status: "approved", Metadata: map[string]any{"level": "basic"}},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if conv.Name != DefaultName {
			t.Errorf("expected default name, got %q", conv.Name)
		}

		got, err := s.Get(ctx, conv.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(got.Messages))
		}
		first, second := got.Messages[0], got.Messages[1]
		if first.ID == "" || first.CreatedAt.IsZero() {
			t.Errorf("expected generated id and timestamp, got %+v", first)
		}
		if second.Status != "approved" || second.Metadata["level"] != "basic" {
			t.Errorf("unexpected assistant message %+v", second)
		}
		if !got.CreatedAt.Equal(conv.CreatedAt) {
			t.Errorf("expected created_at %v, got %v", conv.CreatedAt, got.CreatedAt)
		}
	})
}

func TestStore_ListOrder(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		a, _ := s.Create(ctx, "a", nil)
		b, _ := s.Create(ctx, "b", []Message{{Role: RoleUser, Content: "hi"}})
		if _, err := s.Append(ctx, a.ID, Message{Role: RoleUser, Content: "later"}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("expected 2 conversations, got %d", len(list))
		}
		if list[0].ID != a.ID || list[1].ID != b.ID {
			t.Errorf("expected most recently updated first, got %s then %s", list[0].Name, list[1].Name)
		}
		if list[0].MessageCount != 1 || list[1].MessageCount != 1 {
			t.Errorf("unexpected message counts %d and %d", list[0].MessageCount, list[1].MessageCount)
		}
	})
}

func TestStore_ListEmpty(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		list, err := s.List(context.Background())
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if list == nil || len(list) != 0 {
			t.Errorf("expected empty non-nil list, got %v", list)
		}
	})
}

func TestStore_Update(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		conv, _ := s.Create(ctx, "draft", []Message{{Role: RoleUser, Content: "one"}, {Role: RoleUser, Content: "two"}})

		updated, err := s.Update(ctx, conv.ID, "", []Message{{Role: RoleUser, Content: "only"}})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Name != "draft" {
			t.Errorf("expected name kept, got %q", updated.Name)
		}
		if len(updated.Messages) != 1 || updated.Messages[0].Content != "only" {
			t.Errorf("expected messages replaced, got %+v", updated.Messages)
		}
		if !updated.UpdatedAt.After(conv.UpdatedAt) {
			t.Error("expected updated_at to advance")
		}

		renamed, err := s.Update(ctx, conv.ID, "final", nil)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if renamed.Name != "final" || len(renamed.Messages) != 0 {
			t.Errorf("unexpected conversation %+v", renamed)
		}
	})
}

func TestStore_AppendKeepsOrder(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		conv, _ := s.Create(ctx, "", []Message{{Role: RoleUser, Content: "1"}})
		s.Append(ctx, conv.ID, Message{Role: RoleAssistant, Content: "2"})
		got, err := s.Append(ctx, conv.ID, Message{Role: RoleUser, Content: "3"}, Message{Role: RoleAssistant, Content: "4"})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		var contents string
		for _, m := range got.Messages {
			contents += m.Content
		}
		if contents != "1234" {
			t.Errorf("expected messages in order 1234, got %s", contents)
		}
	})
}

func TestStore_Errors(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		missing := "5b1f6a2e-8c1d-4f6a-9a51-0d1c2b3a4f5e"

		tests := []struct {
			name string
			call func() error
			want error
		}{
			{"get missing", func() error { _, err := s.Get(ctx, missing); return err }, ErrNotFound},
			{"update missing", func() error { _, err := s.Update(ctx, missing, "", nil); return err }, ErrNotFound},
			{"append missing", func() error { _, err := s.Append(ctx, missing); return err }, ErrNotFound},
			{"delete missing", func() error { return s.Delete(ctx, missing) }, ErrNotFound},
			{"get invalid", func() error { _, err := s.Get(ctx, "../etc/passwd"); return err }, ErrInvalidID},
			{"delete invalid", func() error { return s.Delete(ctx, "nope") }, ErrInvalidID},
		}

		for _, tt := range tests {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
			}
		}
	})
}

func TestStore_Delete(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		conv, _ := s.Create(ctx, "gone", []Message{{Role: RoleUser, Content: "bye"}})
		if err := s.Delete(ctx, conv.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Get(ctx, conv.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if list, _ := s.List(ctx); len(list) != 0 {
			t.Errorf("expected empty list, got %v", list)
		}
	})
}

func TestFileStore_SkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if _, err := s.Create(context.Background(), "ok", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].Name != "ok" {
		t.Errorf("expected only the valid conversation, got %+v", list)
	}
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)

	conv, _ := s.Create(context.Background(), "", nil)
	s.Append(context.Background(), conv.ID, Message{Role: RoleUser, Content: "x"})

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != conv.ID+".json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only %s.json, got %v", conv.ID, names)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	conv, err := s.Create(context.Background(), "persisted", []Message{{Role: RoleUser, Content: "hello"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.Get(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "persisted" || len(got.Messages) != 1 {
		t.Errorf("unexpected conversation after reopen %+v", got)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		backend   string
		wantType  string
		wantError bool
	}{
		{backend: "", wantType: "file"},
		{backend: "file", wantType: "file"},
		{backend: "sqlite", wantType: "sqlite"},
		{backend: "redis", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			dir := t.TempDir()
			s, err := Open(config.ConversationsConfig{Backend: tt.backend, Path: dir})
			if (err != nil) != tt.wantError {
				t.Fatalf("expected error %v, got %v", tt.wantError, err)
			}
			if err != nil {
				return
			}
			defer s.Close()

			switch s.(type) {
			case *FileStore:
				if tt.wantType != "file" {
					t.Errorf("expected %s store, got file", tt.wantType)
				}
			case *SQLiteStore:
				if tt.wantType != "sqlite" {
					t.Errorf("expected %s store, got sqlite", tt.wantType)
				}
				if _, err := os.Stat(filepath.Join(dir, SQLiteFileName)); err != nil {
					t.Errorf("expected database file: %v", err)
				}
			}
		})
	}
}
