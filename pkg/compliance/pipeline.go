package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// GenerationRequest is what the pipeline hands to the response generator
// once every input stage has passed.
type GenerationRequest struct {
	Input   string
	Context map[string]any
	Verdict ComplianceVerdict
}

// Generator produces response text for an approved input. It is optional;
// when absent or failing the caller falls back to a synthesized response.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

type skipGenerationKey struct{}

// WithoutGeneration returns a context under which Run skips the response
// generator, as if none were wired.
func WithoutGeneration(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipGenerationKey{}, true)
}

func generationSkipped(ctx context.Context) bool {
	skip, _ := ctx.Value(skipGenerationKey{}).(bool)
	return skip
}

// Observer receives pipeline events, typically for metrics. Laws and phases
// are passed by identifier.
type Observer interface {
	ObserveStage(law string, status string)
	ObserveBlocked(law string, phase string)
	ObserveFault()
	ObserveGeneration(d time.Duration, err error)
}

// Options configures a Pipeline.
type Options struct {
	// Store supplies the live ruleset. Required.
	Store *RuleStore

	// Stages overrides the default law stages. They must be in priority
	// order. Leave nil to use NewStages(Store, Inaction).
	Stages []Stage

	// Inaction is the inaction-harm policy for the default stages.
	Inaction InactionPolicy

	// Generator produces response text. Optional.
	Generator Generator

	// OutputSafety enables FilterOutput on generated text.
	OutputSafety bool

	Observer Observer
	Logger   *slog.Logger
	Tracer   trace.Tracer
}

// Result is the outcome of one pipeline run.
type Result struct {
	Verdict ComplianceVerdict

	// Response is the text to return to the user: the refusal for a blocked
	// request, the generic error text for a fault, or the (filtered)
	// generated text. Empty when nothing was generated.
	Response string

	// Generated is true when Response came from the generator.
	Generated bool

	// GeneratorErr records a generator failure. The run still succeeds.
	GeneratorErr error

	Safety SafetyReport
}

// Pipeline evaluates input against the laws in priority order, stopping at
// the first failure, then generates and re-checks a response.
type Pipeline struct {
	store        *RuleStore
	stages       []Stage
	generator    Generator
	outputSafety bool
	observer     Observer
	logger       *slog.Logger
	tracer       trace.Tracer
}

// New builds a pipeline from opts.
func New(opts Options) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("compliance: %w", errNoRuleset)
	}
	stages := opts.Stages
	if stages == nil {
		stages = NewStages(opts.Store, opts.Inaction)
	}
	if len(stages) == 0 {
		return nil, ErrNoStages
	}

	p := &Pipeline{
		store:        opts.Store,
		stages:       stages,
		generator:    opts.Generator,
		outputSafety: opts.OutputSafety,
		observer:     opts.Observer,
		logger:       opts.Logger,
		tracer:       opts.Tracer,
	}
	if p.logger == nil {
		p.logger = slog.Default().With("component", "compliance.pipeline")
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer("kyosan/compliance")
	}
	return p, nil
}

// HasGenerator reports whether a response generator is wired.
func (p *Pipeline) HasGenerator() bool {
	return p.generator != nil
}

// RulesetVersion returns the version label of the live ruleset.
func (p *Pipeline) RulesetVersion() string {
	if rs := p.store.Current(); rs != nil {
		return rs.Version()
	}
	return ""
}

// Check evaluates the input stages only. It never panics and never returns
// an error: internal failures yield SafeDefault.
func (p *Pipeline) Check(ctx context.Context, input string, evalCtx map[string]any) ComplianceVerdict {
	verdict, err := p.check(ctx, input, evalCtx)
	if err != nil {
		return p.fault(ctx, err).Verdict
	}
	return verdict
}

// Run evaluates input, generates a response if every stage passed, and
// re-checks the generated text against the zeroth and first laws. Run never
// panics: any internal failure produces SafeDefault with the generic error
// response.
func (p *Pipeline) Run(ctx context.Context, input string, evalCtx map[string]any) (res Result) {
	ctx, span := p.tracer.Start(ctx, "compliance.run")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("compliance pipeline panic",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res = p.fault(ctx, &PanicError{Value: r})
		}
		span.SetAttributes(
			attribute.Bool("kyosan.compliance.overall", res.Verdict.OverallCompliant),
			attribute.String("kyosan.compliance.disposition", res.Verdict.Disposition()),
		)
	}()

	verdict, err := p.check(ctx, input, evalCtx)
	if err != nil {
		return p.fault(ctx, err)
	}
	if !verdict.OverallCompliant {
		return Result{Verdict: verdict, Response: BlockedResponse(verdict)}
	}

	res = Result{Verdict: verdict}
	text := ""
	if p.generator != nil && !generationSkipped(ctx) {
		text, res.GeneratorErr = p.generate(ctx, input, evalCtx, verdict)
	}

	out, err := p.recheck(ctx, text, evalCtx, verdict)
	if err != nil {
		return p.fault(ctx, err)
	}
	if out != nil {
		res.Verdict = *out
		res.Response = BlockedResponse(*out)
		return res
	}

	if text == "" {
		return res
	}
	if p.outputSafety {
		text, res.Safety = FilterOutput(p.store.Current(), text)
		if res.Safety.Modified {
			p.logger.Info("generated response adjusted by output safety filter",
				"issues", res.Safety.Issues,
				"replaced", res.Safety.Replaced,
			)
		}
	}
	res.Response = text
	res.Generated = true
	return res
}

func (p *Pipeline) check(ctx context.Context, input string, evalCtx map[string]any) (ComplianceVerdict, error) {
	_, span := p.tracer.Start(ctx, "compliance.check")
	defer span.End()

	stageResults := make(map[Law]StageVerdict, len(p.stages))
	for _, stage := range p.stages {
		sv, err := evaluate(stage, input, evalCtx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stage error")
			return ComplianceVerdict{}, &StageError{Law: stage.Law(), Phase: PhaseInput, Cause: err}
		}
		if !sv.Compliant && sv.Reason == "" {
			return ComplianceVerdict{}, &StageError{
				Law:   stage.Law(),
				Phase: PhaseInput,
				Cause: fmt.Errorf("failing verdict without a reason"),
			}
		}

		stageResults[stage.Law()] = sv
		p.observeStage(stage.Law(), sv.Status)
		p.logger.Debug("stage evaluated", "law", stage.Law().String(), "compliant", sv.Compliant)

		if !sv.Compliant {
			break
		}
	}

	verdict := NewVerdict(stageResults)
	for _, law := range Laws {
		if verdict.Stage(law).Status == StatusNotEvaluated {
			p.observeStage(law, StatusNotEvaluated)
		}
	}
	if !verdict.OverallCompliant {
		p.logger.Info("request blocked",
			"law", verdict.BlockingLaw.String(),
			"reason", verdict.BlockingReason,
		)
		if p.observer != nil {
			p.observer.ObserveBlocked(verdict.BlockingLaw.String(), string(PhaseInput))
		}
		span.SetAttributes(attribute.String("kyosan.compliance.blocking_law", verdict.BlockingLaw.String()))
	}
	return verdict, nil
}

// recheck runs the zeroth and first law stages against generated text. It
// returns a copy of verdict flipped to non-compliant when the output fails,
// nil when it passes. The input-side stage results are left untouched.
func (p *Pipeline) recheck(ctx context.Context, text string, evalCtx map[string]any, verdict ComplianceVerdict) (*ComplianceVerdict, error) {
	_, span := p.tracer.Start(ctx, "compliance.recheck")
	defer span.End()

	outCtx := make(map[string]any, len(evalCtx)+1)
	for k, v := range evalCtx {
		outCtx[k] = v
	}
	outCtx[ContextKeyPhase] = PhaseOutput

	for _, stage := range p.stages {
		law := stage.Law()
		if law != LawZeroth && law != LawFirst {
			continue
		}
		sv, err := evaluate(stage, text, outCtx)
		if err != nil {
			return nil, &StageError{Law: law, Phase: PhaseOutput, Cause: err}
		}
		if sv.Compliant {
			continue
		}

		flipped := verdict
		flipped.OverallCompliant = false
		flipped.BlockingLaw = law
		flipped.BlockingPhase = PhaseOutput
		flipped.BlockingReason = outputReason(law)
		flipped.SuggestedAlternative = sv.SuggestedAlternative

		p.logger.Info("generated response blocked", "law", law.String(), "reason", flipped.BlockingReason)
		if p.observer != nil {
			p.observer.ObserveBlocked(law.String(), string(PhaseOutput))
		}
		span.SetAttributes(attribute.String("kyosan.compliance.blocking_law", law.String()))
		return &flipped, nil
	}
	return nil, nil
}

func (p *Pipeline) generate(ctx context.Context, input string, evalCtx map[string]any, verdict ComplianceVerdict) (string, error) {
	ctx, span := p.tracer.Start(ctx, "compliance.generate")
	defer span.End()

	start := time.Now()
	text, err := p.generator.Generate(ctx, GenerationRequest{Input: input, Context: evalCtx, Verdict: verdict})
	if p.observer != nil {
		p.observer.ObserveGeneration(time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		p.logger.Warn("response generation failed, falling back to synthesis", "error", err)
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *Pipeline) fault(ctx context.Context, err error) Result {
	p.logger.Error("compliance pipeline fault", "error", err)
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, "pipeline fault")
	if p.observer != nil {
		p.observer.ObserveFault()
	}
	return Result{Verdict: SafeDefault(), Response: ProcessingErrorResponse}
}

func (p *Pipeline) observeStage(law Law, status StageStatus) {
	if p.observer != nil {
		p.observer.ObserveStage(law.String(), string(status))
	}
}

// evaluate calls stage.Evaluate, converting a panic into an error.
func evaluate(stage Stage, input string, evalCtx map[string]any) (sv StageVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return stage.Evaluate(input, evalCtx)
}

func outputReason(law Law) string {
	if law == LawZeroth {
		return ReasonZerothOutput
	}
	return ReasonFirstOutput
}

// BlockedResponse renders the user-visible text for a non-compliant verdict:
// the blocking reason followed by the suggested alternative, if any.
func BlockedResponse(v ComplianceVerdict) string {
	if v.Fault {
		return ProcessingErrorResponse
	}
	if v.SuggestedAlternative == "" {
		return v.BlockingReason
	}
	return v.BlockingReason + ". " + v.SuggestedAlternative
}
