package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/plugins"
	"mercator-hq/kyosan/pkg/plugins/builtin"
	"mercator-hq/kyosan/pkg/synthesis"
)

// SynthesizeFunc builds the fallback response. synthesis.Synthesize is the
// default.
type SynthesizeFunc func(input string, verdict compliance.ComplianceVerdict, activeSystems []string) string

// Options configures an Orchestrator.
type Options struct {
	// Pipeline runs the compliance stages and the generator. Required.
	Pipeline *compliance.Pipeline

	// Registry holds the plugins. Required.
	Registry *plugins.Registry

	// Extended names the plugins run at the standard level, in order.
	// Defaults to builtin.Extended. Names missing from the registry are
	// ignored.
	Extended []string

	// Synthesize overrides the fallback response builder.
	Synthesize SynthesizeFunc

	// SummaryAtDetailed appends the ethical summary block to generated or
	// plugin-supplied responses at the detailed level.
	SummaryAtDetailed bool

	Observer Observer
	Logger   *slog.Logger
	Tracer   trace.Tracer
}

// Orchestrator runs the compliance pipeline and then the plugins selected by
// the processing level. It is safe for concurrent use.
type Orchestrator struct {
	pipeline          *compliance.Pipeline
	registry          *plugins.Registry
	extended          []plugins.ID
	synthesize        SynthesizeFunc
	summaryAtDetailed bool
	observer          Observer
	logger            *slog.Logger
	tracer            trace.Tracer
}

// New creates an orchestrator from opts.
func New(opts Options) (*Orchestrator, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("orchestrator: pipeline is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("orchestrator: registry is required")
	}

	o := &Orchestrator{
		pipeline:          opts.Pipeline,
		registry:          opts.Registry,
		synthesize:        opts.Synthesize,
		summaryAtDetailed: opts.SummaryAtDetailed,
		observer:          opts.Observer,
		logger:            opts.Logger,
		tracer:            opts.Tracer,
	}
	if o.synthesize == nil {
		o.synthesize = synthesis.Synthesize
	}
	if o.logger == nil {
		o.logger = slog.Default().With("component", "orchestrator")
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("kyosan/orchestrator")
	}

	names := opts.Extended
	if names == nil {
		names = builtin.Extended
	}
	for _, name := range names {
		id, ok := o.registry.Lookup(name)
		if !ok {
			o.logger.Warn("extended system not registered", "plugin", name)
			continue
		}
		o.extended = append(o.extended, id)
	}

	return o, nil
}

// Registry returns the plugin registry the orchestrator invokes.
func (o *Orchestrator) Registry() *plugins.Registry {
	return o.registry
}

// Pipeline returns the compliance pipeline.
func (o *Orchestrator) Pipeline() *compliance.Pipeline {
	return o.pipeline
}

// Process runs input through the compliance pipeline and, if it is approved,
// through the plugins selected by level. A plugin failure is recorded in the
// result and never fails the request or changes the verdict.
func (o *Orchestrator) Process(ctx context.Context, input string, evalCtx map[string]any, level Level) *ExecutionResult {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "orchestrator.process",
		trace.WithAttributes(attribute.String("kyosan.processing_level", level.String())),
	)
	defer span.End()

	run := o.pipeline.Run(ctx, input, evalCtx)
	result := &ExecutionResult{
		Response:       run.Response,
		Verdict:        run.Verdict,
		Status:         run.Verdict.Disposition(),
		ActiveSystems:  []string{},
		Analyses:       map[string]plugins.Outcome{},
		Level:          level,
		Generated:      run.Generated,
		GeneratorErr:   run.GeneratorErr,
		Safety:         run.Safety,
		RulesetVersion: o.pipeline.RulesetVersion(),
	}

	if !run.Verdict.OverallCompliant {
		// A vetoed request never reaches a plugin.
		if result.Response == "" {
			result.Response = compliance.BlockedResponse(run.Verdict)
		}
		return o.finish(ctx, span, result, start)
	}

	result.ActiveSystems = append(result.ActiveSystems, CorePipelineName)
	result.Analyses[CorePipelineName] = plugins.Outcome{
		Plugin: CorePipelineName,
		Kind:   plugins.OutcomeProcessed,
		Result: map[string]any{
			"overall_compliant": true,
			"ruleset_version":   result.RulesetVersion,
		},
	}

	if level >= LevelStandard {
		o.runExtended(ctx, input, evalCtx, result)
	}
	if level >= LevelDetailed {
		o.runRemaining(ctx, input, evalCtx, result)
	}

	if strings.TrimSpace(result.Response) == "" || result.Response == input {
		result.Response = o.synthesize(input, result.Verdict, result.ActiveSystems)
		result.Generated = false
		result.Synthesized = true
	} else if level >= LevelDetailed && o.summaryAtDetailed {
		result.Response += "\n\n" + synthesis.EthicalSummary(result.Verdict, len(result.ActiveSystems))
	}

	return o.finish(ctx, span, result, start)
}

// runExtended invokes the extended systems in order. An available plugin
// gets one lazy instantiation attempt; if that fails it sits this request
// out and stays available in the registry.
func (o *Orchestrator) runExtended(ctx context.Context, input string, evalCtx map[string]any, result *ExecutionResult) {
	for _, id := range o.extended {
		rec, err := o.registry.Record(id)
		if err != nil {
			continue
		}
		switch rec.Status {
		case plugins.StatusActive:
		case plugins.StatusAvailable:
			rec, err = o.registry.Upgrade(id)
			if err != nil || rec.Status != plugins.StatusActive {
				o.logger.Debug("extended system skipped",
					"plugin", rec.Name,
					"error", err,
				)
				continue
			}
		default:
			continue
		}
		o.invoke(ctx, id, rec.Name, input, evalCtx, result)
	}
}

// runRemaining walks the rest of the registry in registration order. Active
// plugins are invoked and available ones are listed as such. Extended
// systems were already handled, whatever their fate.
func (o *Orchestrator) runRemaining(ctx context.Context, input string, evalCtx map[string]any, result *ExecutionResult) {
	handled := make(map[plugins.ID]bool, len(o.extended))
	for _, id := range o.extended {
		handled[id] = true
	}

	for _, rec := range o.registry.Records() {
		if handled[rec.ID] {
			continue
		}
		switch rec.Status {
		case plugins.StatusActive:
			o.invoke(ctx, rec.ID, rec.Name, input, evalCtx, result)
		case plugins.StatusAvailable:
			out := plugins.AvailableOutcome(rec.Name, rec.Name+" registered but not instantiated")
			o.record(result, out, 0)
		}
	}
}

func (o *Orchestrator) invoke(ctx context.Context, id plugins.ID, name string, input string, evalCtx map[string]any, result *ExecutionResult) {
	ctx, span := o.tracer.Start(ctx, "plugin.invoke",
		trace.WithAttributes(attribute.String("kyosan.plugin", name)),
	)
	defer span.End()

	start := time.Now()
	out, err := o.registry.Invoke(ctx, id, input, evalCtx)
	elapsed := time.Since(start)

	if err != nil {
		var fault *plugins.Fault
		if !errors.As(err, &fault) {
			fault = &plugins.Fault{Plugin: name, Kind: plugins.FaultError, Message: err.Error(), Cause: err}
		}
		out = plugins.FaultOutcome(fault)
		out.Duration = elapsed
		result.Faults = append(result.Faults, name)

		span.RecordError(err)
		span.SetStatus(codes.Error, fault.Message)
		o.logger.Warn("plugin invocation failed",
			"plugin", name,
			"kind", fault.Kind,
			"error", fault.Message,
		)
	}
	span.SetAttributes(attribute.String("kyosan.plugin.outcome", string(out.Kind)))

	if text, ok := out.Result["response"].(string); ok && strings.TrimSpace(text) != "" && strings.TrimSpace(result.Response) == "" {
		result.Response = text
	}
	o.record(result, out, elapsed)
}

func (o *Orchestrator) record(result *ExecutionResult, out plugins.Outcome, d time.Duration) {
	result.ActiveSystems = append(result.ActiveSystems, out.Plugin)
	result.Analyses[out.Plugin] = out
	if o.observer != nil {
		o.observer.ObservePlugin(out.Plugin, string(out.Kind), d)
	}
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, result *ExecutionResult, start time.Time) *ExecutionResult {
	result.Duration = time.Since(start)
	result.Summary = SystemSummary{
		TotalSystems:       o.registry.Len() + 1,
		ActiveInProcessing: len(result.ActiveSystems),
		SystemsUsed:        result.ActiveSystems,
		ProcessingLevel:    result.Level,
	}

	span.SetAttributes(
		attribute.String("kyosan.disposition", result.Status),
		attribute.Int("kyosan.active_systems", len(result.ActiveSystems)),
		attribute.Int("kyosan.plugin_faults", len(result.Faults)),
	)
	if o.observer != nil {
		o.observer.ObserveProcess(result.Level.String(), result.Status, result.Duration)
	}

	o.logger.DebugContext(ctx, "request processed",
		"level", result.Level.String(),
		"disposition", result.Status,
		"active_systems", len(result.ActiveSystems),
		"plugin_faults", len(result.Faults),
		"synthesized", result.Synthesized,
		"duration", result.Duration,
	)
	return result
}

// String renders a one-line description, handy for logs and the CLI.
func (r *ExecutionResult) String() string {
	return fmt.Sprintf("%s at %s level, %d systems", r.Status, r.Level, len(r.ActiveSystems))
}
