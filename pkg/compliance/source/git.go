package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"mercator-hq/kyosan/pkg/compliance"
)

// GitConfig configures a GitSource.
type GitConfig struct {
	// Repository is the clone URL or a local path.
	Repository string
	Branch     string
	// Token enables HTTPS basic auth with the token as password.
	Token string
	// LocalPath is where the working copy lives.
	LocalPath string
	// Dir is the ruleset file or directory relative to the repository root.
	// Empty means the repository root.
	Dir     string
	Timeout time.Duration
}

// GitSource loads a ruleset from a git repository. The compiled ruleset's
// version carries the commit it was read from.
type GitSource struct {
	cfg    GitConfig
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource validates cfg and returns a source. Nothing is cloned until
// the first Load or Sync.
func NewGitSource(cfg GitConfig, logger *slog.Logger) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "kyosan-rulesets")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitSource{cfg: cfg, logger: logger.With("component", "ruleset.git")}, nil
}

func (g *GitSource) auth() transport.AuthMethod {
	if g.cfg.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "git", Password: g.cfg.Token}
}

// Sync clones the repository on first use and pulls afterwards. It returns
// the HEAD commit and whether it moved.
func (g *GitSource) Sync(ctx context.Context) (sha string, changed bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if g.repo == nil {
		if err := g.open(ctx); err != nil {
			return "", false, err
		}
		sha, err := head(g.repo)
		return sha, true, err
	}

	before, err := head(g.repo)
	if err != nil {
		return "", false, err
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return "", false, fmt.Errorf("failed to get worktree: %w", err)
	}
	err = wt.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(g.cfg.Branch),
		SingleBranch:  true,
		Auth:          g.auth(),
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return before, false, fmt.Errorf("failed to pull: %w", err)
	}

	after, err := head(g.repo)
	if err != nil {
		return "", false, err
	}
	return after, after != before, nil
}

// open reuses an existing working copy or clones a fresh one.
func (g *GitSource) open(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(g.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(g.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo: %w", err)
		}
		g.repo = repo
		return nil
	}

	if err := os.MkdirAll(g.cfg.LocalPath, 0o755); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	repo, err := gogit.PlainCloneContext(ctx, g.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           g.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(g.cfg.Branch),
		SingleBranch:  true,
		Auth:          g.auth(),
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	g.repo = repo

	g.logger.Info("cloned ruleset repository",
		"repository", g.cfg.Repository,
		"branch", g.cfg.Branch,
		"path", g.cfg.LocalPath,
	)
	return nil
}

func head(repo *gogit.Repository) (string, error) {
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// Load syncs the repository and compiles the ruleset in it. The version is
// "<spec version>@<short sha>".
func (g *GitSource) Load(ctx context.Context) (*compliance.Ruleset, error) {
	sha, _, err := g.Sync(ctx)
	if err != nil {
		return nil, err
	}

	fs := NewFileSource(filepath.Join(g.cfg.LocalPath, g.cfg.Dir), g.logger)
	spec, err := fs.LoadSpec(ctx)
	if err != nil {
		return nil, err
	}
	spec.Version = spec.Version + "@" + shortSHA(sha)

	return fs.compile(spec)
}

// Poll syncs every interval and calls onChange when HEAD moves. It returns
// when ctx is done.
func (g *GitSource) Poll(ctx context.Context, interval time.Duration, onChange func() error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sha, changed, err := g.Sync(ctx)
			if err != nil {
				g.logger.Warn("ruleset repository sync failed", "error", err)
				continue
			}
			if !changed {
				continue
			}
			g.logger.Info("ruleset repository changed", "commit", shortSHA(sha))
			if err := onChange(); err != nil {
				g.logger.Error("ruleset reload failed", "commit", shortSHA(sha), "error", err)
			}
		}
	}
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
