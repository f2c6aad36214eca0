package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// commitFile writes name into the repository at dir and commits it.
func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	hash, err := wt.Commit("update "+name, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

func newUpstream(t *testing.T) (*gogit.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	return repo, dir
}

func TestNewGitSource_Validation(t *testing.T) {
	if _, err := NewGitSource(GitConfig{Branch: "master"}, nil); err == nil {
		t.Error("expected error for empty repository")
	}
	if _, err := NewGitSource(GitConfig{Repository: "/tmp/x"}, nil); err == nil {
		t.Error("expected error for empty branch")
	}
}

func TestGitSource_LoadAndSync(t *testing.T) {
	upstream, upstreamDir := newUpstream(t)
	first := commitFile(t, upstream, upstreamDir, "rules/base.yaml", baseRuleset)

	src, err := NewGitSource(GitConfig{
		Repository: upstreamDir,
		Branch:     "master",
		LocalPath:  filepath.Join(t.TempDir(), "clone"),
		Dir:        "rules",
	}, nil)
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}

	rs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := "test-1@" + first[:12]; rs.Version() != want {
		t.Errorf("expected version %q, got %q", want, rs.Version())
	}

	sha, changed, err := src.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if changed || sha != first {
		t.Errorf("expected no change at %s, got changed=%v sha=%s", first, changed, sha)
	}

	second := commitFile(t, upstream, upstreamDir, "rules/extra.yaml", "first:\n  keywords: [\"sabotage\"]\n")

	rs, err = src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() after commit error = %v", err)
	}
	if !strings.HasSuffix(rs.Version(), "@"+second[:12]) {
		t.Errorf("expected version at %s, got %q", second[:12], rs.Version())
	}
	if !rs.IndividualHarm("sabotage") {
		t.Error("expected keyword from new commit")
	}
}
