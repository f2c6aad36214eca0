package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/kyosan/pkg/cli"
	"mercator-hq/kyosan/pkg/config"
	"mercator-hq/kyosan/pkg/conversations"
	"mercator-hq/kyosan/pkg/evidence"
	"mercator-hq/kyosan/pkg/evidence/recorder"
	"mercator-hq/kyosan/pkg/evidence/retention"
	"mercator-hq/kyosan/pkg/plugins"
	"mercator-hq/kyosan/pkg/server"
	"mercator-hq/kyosan/pkg/telemetry/health"
	"mercator-hq/kyosan/pkg/telemetry/logging"
	"mercator-hq/kyosan/pkg/telemetry/metrics"
	"mercator-hq/kyosan/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Kyosan API server",
	Long: `Start the Kyosan API server with the specified configuration.

The server loads the ruleset (from a file, a directory or a git
repository), registers the analysis systems and serves the evaluation,
conversation and health APIs until it receives SIGINT or SIGTERM.

Examples:
  # Start with default config
  kyosan run

  # Start with custom config
  kyosan run --config /etc/kyosan/config.yaml

  # Override listen address
  kyosan run --listen 0.0.0.0:8080

  # Validate config and ruleset without starting the server
  kyosan run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and ruleset without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.ConfigFrom(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	if runFlags.dryRun {
		e, err := buildEngine(ctx, cfg, engineOptions{logger: logger})
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		fmt.Fprintln(out, "✓ Configuration valid")
		fmt.Fprintf(out, "✓ Ruleset valid (version %s)\n", e.rules.Current().Version())
		return nil
	}

	printBanner(out, cfg)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	}

	e, err := buildEngine(ctx, cfg, engineOptions{
		withGenerator: true,
		collector:     collector,
		tracer:        tracer.Tracer(),
		logger:        logger,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer e.close()
	fmt.Fprintf(out, "✓ Ruleset loaded (version %s)\n", e.rules.Current().Version())

	stopWatch, err := e.watchRules(ctx)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer stopWatch()

	counts := e.registry.Counts()
	fmt.Fprintf(out, "✓ Analysis systems registered (%d total, %d active)\n", e.registry.Len(), counts[plugins.StatusActive])
	if e.generator != nil {
		fmt.Fprintf(out, "✓ Response generator enabled (model %s)\n", e.generator.Model())
	}

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.Register("ruleset", func(context.Context) error {
		if e.rules.Current() == nil {
			return errors.New("no ruleset loaded")
		}
		return nil
	})

	deps := server.Dependencies{
		Orchestrator: e.orchestrator,
		Metrics:      collector,
		Tracer:       tracer,
		Health:       checker,
		Reasoner:     e.reasoner,
		Version:      versionInfo(),
	}

	if cfg.Evidence.Enabled {
		slog.Info("initializing evidence recording", "backend", cfg.Evidence.Backend)

		store, err := openEvidence(cfg, "")
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer store.Close()
		registerPing(checker, "evidence", store)

		rec := recorder.NewRecorder(store, recorder.ConfigFrom(cfg.Evidence))
		defer rec.Close()
		deps.Recorder = rec

		pruner := retention.NewPruner(store, retention.ConfigFrom(cfg.Evidence.Retention))
		if err := pruner.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer pruner.Stop()
			if next := pruner.NextPruning(); next != nil {
				slog.Debug("evidence retention scheduler started", "next_pruning", next)
			}
		}

		fmt.Fprintln(out, "✓ Evidence store initialized")
	}

	if cfg.Conversations.Enabled {
		convs, err := conversations.Open(cfg.Conversations)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open conversation store: %w", err))
		}
		defer convs.Close()
		deps.Conversations = convs

		fmt.Fprintln(out, "✓ Conversation store initialized")
	}

	if cfg.Governance.Enabled {
		governor, register, err := e.openGovernor()
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer register.Close()
		deps.Governor = governor

		fmt.Fprintln(out, "✓ Upgrade governance initialized")
	}

	srv, err := server.NewServer(cfg, deps)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "✓ Health endpoint: http://%s/api/health\n", cfg.Server.ListenAddress)
	if collector != nil {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := <-errChan; err != nil {
		slog.Error("server failed", "error", err)
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func printBanner(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "Kyosan v%s\n", Version)
	fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(out, "✓ Configuration loaded")

	switch {
	case cfg.Rules.Git.Enabled:
		slog.Debug("ruleset source", "mode", "git", "repository", cfg.Rules.Git.Repository, "branch", cfg.Rules.Git.Branch)
	case cfg.Rules.Path != "":
		slog.Debug("ruleset source", "mode", "file", "path", cfg.Rules.Path, "watch", cfg.Rules.Watch)
	default:
		slog.Debug("ruleset source", "mode", "builtin")
	}

	if cfg.Evidence.Enabled {
		slog.Debug("evidence enabled", "backend", cfg.Evidence.Backend)
	}
}

// registerPing adds a readiness check for stores that can be pinged.
func registerPing(checker *health.Checker, name string, store evidence.Storage) {
	pinger, ok := store.(interface{ Ping(context.Context) error })
	if !ok {
		return
	}
	checker.Register(name, pinger.Ping)
}
