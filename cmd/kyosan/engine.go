package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/kyosan/pkg/analysis"
	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/compliance/source"
	"mercator-hq/kyosan/pkg/config"
	"mercator-hq/kyosan/pkg/evidence"
	"mercator-hq/kyosan/pkg/evidence/storage"
	"mercator-hq/kyosan/pkg/governance"
	"mercator-hq/kyosan/pkg/orchestrator"
	"mercator-hq/kyosan/pkg/plugins"
	"mercator-hq/kyosan/pkg/plugins/builtin"
	"mercator-hq/kyosan/pkg/providers/openrouter"
	"mercator-hq/kyosan/pkg/reasoning"
	"mercator-hq/kyosan/pkg/telemetry/metrics"
)

// engine is the request path shared by run and evaluate.
type engine struct {
	cfg          *config.Config
	rules        *compliance.RuleStore
	loader       source.Loader
	git          *source.GitSource
	generator    *openrouter.Client
	inaction     compliance.InactionPolicy
	pipeline     *compliance.Pipeline
	reasoner     *reasoning.Reasoner
	registry     *plugins.Registry
	orchestrator *orchestrator.Orchestrator
	logger       *slog.Logger
}

type engineOptions struct {
	// withGenerator wires the configured generator when it is enabled.
	withGenerator bool
	collector     *metrics.Collector
	tracer        trace.Tracer
	logger        *slog.Logger
}

func buildEngine(ctx context.Context, cfg *config.Config, opts engineOptions) (*engine, error) {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &engine{cfg: cfg, logger: logger}

	if err := e.loadRules(ctx); err != nil {
		return nil, err
	}

	switch {
	case !opts.withGenerator || !cfg.Generator.Enabled:
	case strings.TrimSpace(cfg.Generator.APIKey) == "":
		logger.Warn("generator enabled without an API key, responses will be synthesized",
			"provider", cfg.Generator.Provider)
	default:
		client, err := openrouter.New(openrouter.FromConfig(cfg.Generator))
		if err != nil {
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
		e.generator = client
	}

	e.inaction = compliance.NeverInaction
	if cfg.Pipeline.InactionPolicy == "ruleset" {
		e.inaction = compliance.RulesetInaction(e.rules)
	}

	pipelineOpts := compliance.Options{
		Store:        e.rules,
		Inaction:     e.inaction,
		OutputSafety: cfg.Pipeline.OutputSafety,
		Logger:       logger.With("component", "compliance.pipeline"),
		Tracer:       opts.tracer,
	}
	if e.generator != nil {
		pipelineOpts.Generator = e.generator
	}
	if opts.collector != nil {
		pipelineOpts.Observer = opts.collector
	}
	pipeline, err := compliance.New(pipelineOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create compliance pipeline: %w", err)
	}
	e.pipeline = pipeline

	e.registry = plugins.NewRegistry(logger.With("component", "plugins"))
	if err := builtin.Register(e.registry, analysis.NewAnalyzer(analysis.DefaultConfig()), cfg.Plugins.Disabled, logger); err != nil {
		return nil, fmt.Errorf("failed to register plugins: %w", err)
	}
	e.registry.Instantiate(pluginSettings(cfg.Plugins.Settings, cfg.Reasoning.HarmThreshold))
	e.reasoner = reasoning.New(cfg.Reasoning.HarmThreshold)

	orchOpts := orchestrator.Options{
		Pipeline:          pipeline,
		Registry:          e.registry,
		SummaryAtDetailed: cfg.Pipeline.SummaryAtDetailed,
		Logger:            logger.With("component", "orchestrator"),
		Tracer:            opts.tracer,
	}
	if opts.collector != nil {
		orchOpts.Observer = opts.collector
	}
	e.orchestrator, err = orchestrator.New(orchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	return e, nil
}

// loadRules picks the ruleset source: a git repository, a file or
// directory, or the built-in ruleset when neither is configured.
func (e *engine) loadRules(ctx context.Context) error {
	rules := e.cfg.Rules

	switch {
	case rules.Git.Enabled:
		git, err := source.NewGitSource(source.GitConfig{
			Repository: rules.Git.Repository,
			Branch:     rules.Git.Branch,
			Token:      rules.Git.Token,
			LocalPath:  rules.Git.LocalPath,
			Dir:        rules.Path,
			Timeout:    rules.Git.Timeout,
		}, e.logger)
		if err != nil {
			return fmt.Errorf("failed to create git ruleset source: %w", err)
		}
		e.git = git
		e.loader = git
	case rules.Path != "":
		e.loader = source.NewFileSource(rules.Path, e.logger)
	}

	rs := compliance.DefaultRuleset()
	if e.loader != nil {
		loaded, err := e.loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load ruleset: %w", err)
		}
		rs = loaded
	}
	e.rules = compliance.NewRuleStore(rs)
	return nil
}

// watchRules keeps the live ruleset current until ctx is done. It returns
// a stop function; with nothing to watch both are no-ops.
func (e *engine) watchRules(ctx context.Context) (func(), error) {
	reload := func() error {
		return source.Reload(ctx, e.loader, e.rules, e.logger)
	}
	rules := e.cfg.Rules

	if e.git != nil {
		if rules.Git.PollInterval <= 0 {
			return func() {}, nil
		}
		pollCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			e.git.Poll(pollCtx, rules.Git.PollInterval, reload)
		}()
		return func() { cancel(); <-done }, nil
	}

	if e.loader == nil || !rules.Watch {
		return func() {}, nil
	}

	watcher, err := source.NewFileWatcher(source.WatcherConfig{
		Path:             rules.Path,
		DebounceInterval: rules.DebounceInterval,
	}, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create ruleset watcher: %w", err)
	}
	go func() {
		if err := watcher.Watch(ctx, reload); err != nil {
			e.logger.Error("ruleset watcher exited", "error", err)
		}
	}()
	return func() {
		if err := watcher.Stop(); err != nil {
			e.logger.Warn("failed to stop ruleset watcher", "error", err)
		}
	}, nil
}

func (e *engine) close() {
	if e.generator != nil {
		if err := e.generator.Close(); err != nil {
			e.logger.Warn("failed to close generator", "error", err)
		}
	}
}

// pluginSettings converts the configured plugin settings. The reasoning
// plugin gets the configured harm threshold unless it sets its own.
func pluginSettings(settings map[string]map[string]any, harmThreshold float64) map[string]plugins.Config {
	out := make(map[string]plugins.Config, len(settings)+1)
	for name, s := range settings {
		out[name] = plugins.Config(s)
	}
	if harmThreshold <= 0 {
		return out
	}
	reasoningCfg := plugins.Config{builtin.HarmThresholdSetting: harmThreshold}
	for k, v := range out[builtin.AdvancedReasoningName] {
		reasoningCfg[k] = v
	}
	out[builtin.AdvancedReasoningName] = reasoningCfg
	return out
}

// openGovernor opens the TRACE register and builds the upgrade governor
// over the live rule store. Closing the register is the caller's job.
func (e *engine) openGovernor() (*governance.Governor, governance.Register, error) {
	var reg governance.Register
	switch gc := e.cfg.Governance; gc.Backend {
	case "memory":
		reg = governance.NewMemoryRegister()
	case "sqlite":
		if dir := filepath.Dir(gc.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create TRACE register directory: %w", err)
			}
		}
		sqlReg, err := governance.NewSQLiteRegister(gc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open TRACE register: %w", err)
		}
		reg = sqlReg
	default:
		return nil, nil, fmt.Errorf("unsupported governance backend: %s (supported: sqlite, memory)", gc.Backend)
	}

	g, err := governance.New(governance.Options{
		Store:    e.rules,
		Register: reg,
		Inaction: e.inaction,
		Logger:   e.logger.With("component", "governance"),
	})
	if err != nil {
		reg.Close()
		return nil, nil, err
	}
	return g, reg, nil
}

// openEvidence opens the configured decision store. backend overrides the
// configured one when set.
func openEvidence(cfg *config.Config, backend string) (evidence.Storage, error) {
	if backend == "" {
		backend = cfg.Evidence.Backend
	}

	switch backend {
	case "sqlite":
		store, err := storage.NewSQLiteStorage(storage.SQLiteConfigFrom(cfg.Evidence.SQLite))
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storage: %w", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported evidence backend: %s (supported: sqlite, memory)", backend)
	}
}
