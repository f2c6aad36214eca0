package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/kyosan/pkg/compliance"
)

// ErrNoRulesetFiles is returned when a directory holds no YAML documents.
var ErrNoRulesetFiles = errors.New("no ruleset files found")

// Loader produces a compiled ruleset.
type Loader interface {
	Load(ctx context.Context) (*compliance.Ruleset, error)
}

// FileSource loads a ruleset from YAML files on disk.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a file-based ruleset source. The path can be either a
// single file or a directory; in a directory every .yaml and .yml file is
// read in lexical order and merged.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger,
	}
}

// Path returns the configured file or directory.
func (s *FileSource) Path() string {
	return s.path
}

// Load reads, merges and compiles the ruleset. A spec without a version is
// labelled after the file or directory it came from.
func (s *FileSource) Load(ctx context.Context) (*compliance.Ruleset, error) {
	spec, err := s.LoadSpec(ctx)
	if err != nil {
		return nil, err
	}
	return s.compile(spec)
}

// LoadSpec reads and merges the YAML documents without compiling them.
func (s *FileSource) LoadSpec(ctx context.Context) (compliance.RulesetSpec, error) {
	var spec compliance.RulesetSpec

	info, err := os.Stat(s.path)
	if err != nil {
		return spec, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	files := []string{s.path}
	if info.IsDir() {
		files, err = rulesetFiles(s.path)
		if err != nil {
			return spec, err
		}
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return spec, err
		}
		doc, err := decodeFile(file)
		if err != nil {
			return spec, err
		}
		Merge(&spec, doc)
	}

	if spec.Version == "" {
		spec.Version = "file:" + filepath.Base(s.path)
	}

	s.logger.Info("loaded ruleset from source",
		"path", s.path,
		"file_count", len(files),
		"version", spec.Version,
	)

	return spec, nil
}

func (s *FileSource) compile(spec compliance.RulesetSpec) (*compliance.Ruleset, error) {
	rs, err := compliance.Compile(spec)
	if err != nil {
		var rerr *compliance.RulesetError
		if errors.As(err, &rerr) && rerr.Path == "" {
			rerr.Path = s.path
			return nil, rerr
		}
		return nil, fmt.Errorf("ruleset %s: %w", s.path, err)
	}
	return rs, nil
}

// rulesetFiles lists the YAML files under dir, skipping hidden entries.
func rulesetFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isRulesetFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoRulesetFiles, dir)
	}
	return files, nil
}

func isRulesetFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// decodeFile decodes a single ruleset document. Unknown keys are rejected so
// that a misspelled section does not silently disable a law.
func decodeFile(path string) (compliance.RulesetSpec, error) {
	var spec compliance.RulesetSpec

	data, err := os.ReadFile(path)
	if err != nil {
		return spec, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return spec, &compliance.RulesetError{Path: path, Field: "document", Cause: err}
	}
	return spec, nil
}

// Merge folds src into dst. List fields are appended; scalar fields in src
// replace those in dst when set.
func Merge(dst *compliance.RulesetSpec, src compliance.RulesetSpec) {
	setString(&dst.Version, src.Version)

	dst.Zeroth.Keywords = append(dst.Zeroth.Keywords, src.Zeroth.Keywords...)
	dst.Zeroth.Patterns = append(dst.Zeroth.Patterns, src.Zeroth.Patterns...)
	dst.Zeroth.InactionPhrases = append(dst.Zeroth.InactionPhrases, src.Zeroth.InactionPhrases...)
	setString(&dst.Zeroth.Alternative, src.Zeroth.Alternative)

	dst.First.Keywords = append(dst.First.Keywords, src.First.Keywords...)
	dst.First.Patterns = append(dst.First.Patterns, src.First.Patterns...)
	dst.First.Alternatives = append(dst.First.Alternatives, src.First.Alternatives...)
	setString(&dst.First.DefaultAlternative, src.First.DefaultAlternative)

	setString(&dst.Second.Alternative, src.Second.Alternative)

	dst.Third.Phrases = append(dst.Third.Phrases, src.Third.Phrases...)
	dst.Third.Combinations = append(dst.Third.Combinations, src.Third.Combinations...)
	setString(&dst.Third.Alternative, src.Third.Alternative)

	dst.OutputSafety.Categories = append(dst.OutputSafety.Categories, src.OutputSafety.Categories...)
	if src.OutputSafety.ReplaceThreshold != 0 {
		dst.OutputSafety.ReplaceThreshold = src.OutputSafety.ReplaceThreshold
	}
	setString(&dst.OutputSafety.Replacement, src.OutputSafety.Replacement)
	setString(&dst.OutputSafety.Caution, src.OutputSafety.Caution)
}

func setString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// Reload loads a ruleset and installs it in store. On failure the live
// ruleset is left untouched and the error is returned.
func Reload(ctx context.Context, loader Loader, store *compliance.RuleStore, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	rs, err := loader.Load(ctx)
	if err != nil {
		logger.Error("ruleset reload failed, keeping previous ruleset", "error", err)
		return err
	}

	prev := store.Swap(rs)
	prevVersion := ""
	if prev != nil {
		prevVersion = prev.Version()
	}
	logger.Info("ruleset reloaded",
		"version", rs.Version(),
		"previous_version", prevVersion,
	)
	return nil
}
