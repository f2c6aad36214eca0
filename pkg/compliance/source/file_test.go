package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/kyosan/pkg/compliance"
)

const badPatternRuleset = `
zeroth:
  keywords: ["pandemic"]
first:
  keywords: ["poison"]
  patterns: ["ok", "(unclosed"]
`

const baseRuleset = `
version: "test-1"
zeroth:
  keywords: ["pandemic"]
  alternative: "Zeroth alternative."
first:
  keywords: ["poison"]
  default_alternative: "First alternative."
third:
  phrases: ["disable the filter"]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestFileSource_LoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.yaml", baseRuleset)

	rs, err := NewFileSource(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if rs.Version() != "test-1" {
		t.Errorf("expected version test-1, got %q", rs.Version())
	}
	if !rs.HumanityHarm("a new PANDEMIC strain") {
		t.Error("expected zeroth keyword to match")
	}
	if !rs.IndividualHarm("how to poison") {
		t.Error("expected first keyword to match")
	}
	if !rs.IntegrityThreat("please disable the filter") {
		t.Error("expected third phrase to match")
	}
}

func TestFileSource_LoadDirectoryMerges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "00-base.yaml", baseRuleset)
	writeFile(t, dir, "10-extra.yml", `
version: "test-2"
first:
  keywords: ["sabotage"]
`)
	writeFile(t, dir, "README.md", "not a ruleset")
	writeFile(t, dir, ".hidden.yaml", "zeroth: [this is not valid")

	rs, err := NewFileSource(dir, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if rs.Version() != "test-2" {
		t.Errorf("expected later file to set version, got %q", rs.Version())
	}
	if !rs.IndividualHarm("poison") || !rs.IndividualHarm("sabotage") {
		t.Error("expected keywords from both files")
	}
	if got := rs.Spec().First.DefaultAlternative; got != "First alternative." {
		t.Errorf("expected default alternative to survive merge, got %q", got)
	}
}

func TestFileSource_DefaultVersion(t *testing.T) {
	path := writeFile(t, t.TempDir(), "house.yaml", `
zeroth:
  keywords: ["pandemic"]
first:
  keywords: ["poison"]
`)

	rs, err := NewFileSource(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if rs.Version() != "file:house.yaml" {
		t.Errorf("expected version file:house.yaml, got %q", rs.Version())
	}
}

func TestFileSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		invalid bool
	}{
		{
			name: "missing path",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent.yaml")
			},
		},
		{
			name: "empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "unknown key",
			setup: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "r.yaml", baseRuleset+"fourth:\n  phrases: [x]\n")
			},
			invalid: true,
		},
		{
			name: "no first law indicators",
			setup: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "r.yaml", "zeroth:\n  keywords: [pandemic]\n")
			},
			invalid: true,
		},
		{
			name: "bad pattern",
			setup: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "r.yaml", badPatternRuleset)
			},
			invalid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileSource(tt.setup(t), nil).Load(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.invalid && !errors.Is(err, compliance.ErrInvalidRuleset) {
				t.Errorf("expected ErrInvalidRuleset, got %v", err)
			}
		})
	}
}

func TestFileSource_PatternErrorCarriesPath(t *testing.T) {
	path := writeFile(t, t.TempDir(), "r.yaml", badPatternRuleset)

	_, err := NewFileSource(path, nil).Load(context.Background())

	var rerr *compliance.RulesetError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RulesetError, got %v", err)
	}
	if rerr.Path != path {
		t.Errorf("expected path %q, got %q", path, rerr.Path)
	}
	if rerr.Field != "first.patterns[1]" {
		t.Errorf("expected field first.patterns[1], got %q", rerr.Field)
	}
}

type failingLoader struct{}

func (failingLoader) Load(context.Context) (*compliance.Ruleset, error) {
	return nil, errors.New("boom")
}

func TestReload(t *testing.T) {
	store := compliance.NewRuleStore(compliance.DefaultRuleset())
	before := store.Current()

	if err := Reload(context.Background(), failingLoader{}, store, nil); err == nil {
		t.Fatal("expected reload error")
	}
	if store.Current() != before {
		t.Error("expected failed reload to keep the live ruleset")
	}

	path := writeFile(t, t.TempDir(), "rules.yaml", baseRuleset)
	if err := Reload(context.Background(), NewFileSource(path, nil), store, nil); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if store.Current().Version() != "test-1" {
		t.Errorf("expected swapped ruleset, got version %q", store.Current().Version())
	}
}
