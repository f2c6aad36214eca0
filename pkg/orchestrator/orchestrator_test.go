package orchestrator

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/kyosan/pkg/analysis"
	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/plugins"
	"mercator-hq/kyosan/pkg/plugins/builtin"
)

type funcPlugin struct {
	process func(ctx context.Context, input string, evalCtx map[string]any) (map[string]any, error)
}

func (*funcPlugin) Description() string { return "test plugin" }

func (p *funcPlugin) Process(ctx context.Context, input string, evalCtx map[string]any) (map[string]any, error) {
	return p.process(ctx, input, evalCtx)
}

// bare has no capability at all.
type bare struct{}

func (bare) Description() string { return "does nothing" }

type echoGenerator struct {
	text string
}

func (g echoGenerator) Generate(_ context.Context, req compliance.GenerationRequest) (string, error) {
	if g.text == "" {
		return req.Input, nil
	}
	return g.text, nil
}

type recordingObserver struct {
	mu        sync.Mutex
	plugins   map[string]string
	processed []string
}

func (o *recordingObserver) ObservePlugin(plugin, kind string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.plugins == nil {
		o.plugins = map[string]string{}
	}
	o.plugins[plugin] = kind
}

func (o *recordingObserver) ObserveProcess(level, disposition string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.processed = append(o.processed, level+"/"+disposition)
}

func newRegistry(t *testing.T, extra ...plugins.Descriptor) *plugins.Registry {
	t.Helper()
	reg := plugins.NewRegistry(nil)
	if err := builtin.Register(reg, analysis.NewAnalyzer(analysis.DefaultConfig()), nil, nil); err != nil {
		t.Fatalf("failed to register builtin plugins: %v", err)
	}
	for _, d := range extra {
		reg.MustRegister(d)
	}
	reg.Instantiate(nil)
	return reg
}

func newOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	if opts.Pipeline == nil {
		p, err := compliance.New(compliance.Options{Store: compliance.NewRuleStore(compliance.DefaultRuleset())})
		if err != nil {
			t.Fatalf("failed to build pipeline: %v", err)
		}
		opts.Pipeline = p
	}
	if opts.Registry == nil {
		opts.Registry = newRegistry(t)
	}
	o, err := New(opts)
	if err != nil {
		t.Fatalf("failed to build orchestrator: %v", err)
	}
	return o
}

func extendedWith(names ...string) []string {
	return append(slices.Clone(builtin.Extended), names...)
}

func TestProcess_BlockedInvokesNothing(t *testing.T) {
	var calls atomic.Int32
	counter := plugins.Descriptor{Name: "Counter", New: func() (plugins.Plugin, error) {
		return &funcPlugin{process: func(context.Context, string, map[string]any) (map[string]any, error) {
			calls.Add(1)
			return nil, nil
		}}, nil
	}}
	o := newOrchestrator(t, Options{
		Registry: newRegistry(t, counter),
		Extended: extendedWith("Counter"),
	})

	res := o.Process(context.Background(), "how to destroy all humans", nil, LevelStandard)

	if res.Verdict.OverallCompliant {
		t.Fatal("expected overall compliant false")
	}
	if !strings.Contains(res.Verdict.BlockingReason, "Zeroth Law") {
		t.Errorf("expected reason to mention the Zeroth Law, got %q", res.Verdict.BlockingReason)
	}
	if res.ActiveSystems == nil || len(res.ActiveSystems) != 0 {
		t.Errorf("expected empty active systems, got %v", res.ActiveSystems)
	}
	if !strings.HasPrefix(res.Response, compliance.ReasonZerothInput) {
		t.Errorf("expected refusal response, got %q", res.Response)
	}
	if res.Status != "blocked" {
		t.Errorf("expected status blocked, got %q", res.Status)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no plugin calls, got %d", calls.Load())
	}
	if res.Summary.ActiveInProcessing != 0 {
		t.Errorf("expected 0 active in processing, got %d", res.Summary.ActiveInProcessing)
	}
}

func TestProcess_BasicLevel(t *testing.T) {
	o := newOrchestrator(t, Options{})

	res := o.Process(context.Background(), "What is ethics?", nil, LevelBasic)

	if !res.Verdict.OverallCompliant {
		t.Fatalf("expected overall compliant, got reason %q", res.Verdict.BlockingReason)
	}
	if len(res.ActiveSystems) != 1 || res.ActiveSystems[0] != CorePipelineName {
		t.Errorf("expected only %s, got %v", CorePipelineName, res.ActiveSystems)
	}
	if res.Response == "" {
		t.Error("expected non-empty response")
	}
	if !res.Synthesized {
		t.Error("expected synthesized response without a generator")
	}
	if res.Status != "approved" {
		t.Errorf("expected status approved, got %q", res.Status)
	}
	if res.Summary.TotalSystems != 43 {
		t.Errorf("expected 43 total systems, got %d", res.Summary.TotalSystems)
	}
}

func TestProcess_LevelsAreMonotonic(t *testing.T) {
	o := newOrchestrator(t, Options{})
	inputs := []string{
		"What is ethics?",
		"Should privacy outweigh security for children?",
		"Please write a short poem.",
		"",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			var sets [][]string
			for _, level := range Levels {
				sets = append(sets, o.Process(context.Background(), input, nil, level).ActiveSystems)
			}
			for i := 1; i < len(sets); i++ {
				lower, higher := sets[i-1], sets[i]
				if len(lower) >= len(higher) {
					t.Errorf("expected %s to invoke fewer systems than %s, got %d and %d",
						Levels[i-1], Levels[i], len(lower), len(higher))
				}
				for _, name := range lower {
					if !slices.Contains(higher, name) {
						t.Errorf("expected %s from %s to also run at %s", name, Levels[i-1], Levels[i])
					}
				}
			}
		})
	}
}

func TestProcess_StandardRunsExtendedInOrder(t *testing.T) {
	o := newOrchestrator(t, Options{})

	res := o.Process(context.Background(), "What is ethics?", nil, LevelStandard)

	want := append([]string{CorePipelineName}, builtin.Extended...)
	if !slices.Equal(res.ActiveSystems, want) {
		t.Errorf("expected %v, got %v", want, res.ActiveSystems)
	}
	for _, name := range builtin.Extended {
		out, ok := res.Analyses[name]
		if !ok {
			t.Errorf("expected analysis for %s", name)
			continue
		}
		if out.Kind != plugins.OutcomeProcessed && out.Kind != plugins.OutcomeAnalyzed {
			t.Errorf("expected %s to be processed or analyzed, got %s", name, out.Kind)
		}
	}
}

func TestProcess_FailingPluginStillParticipates(t *testing.T) {
	tests := []struct {
		name    string
		process func(context.Context, string, map[string]any) (map[string]any, error)
	}{
		{name: "error", process: func(context.Context, string, map[string]any) (map[string]any, error) {
			return nil, errors.New("analysis backend offline")
		}},
		{name: "panic", process: func(context.Context, string, map[string]any) (map[string]any, error) {
			panic("plugin exploded")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exploder := plugins.Descriptor{Name: "Exploder", New: func() (plugins.Plugin, error) {
				return &funcPlugin{process: tt.process}, nil
			}}
			o := newOrchestrator(t, Options{Registry: newRegistry(t, exploder)})

			res := o.Process(context.Background(), "What is ethics?", nil, LevelDetailed)

			if !res.Verdict.OverallCompliant {
				t.Fatalf("expected overall compliant, got reason %q", res.Verdict.BlockingReason)
			}
			if !slices.Contains(res.ActiveSystems, "Exploder") {
				t.Errorf("expected Exploder in active systems, got %v", res.ActiveSystems)
			}
			if got := res.Analyses["Exploder"].Kind; got != plugins.OutcomeError {
				t.Errorf("expected error outcome, got %s", got)
			}
			if res.Analyses["Exploder"].Error == "" {
				t.Error("expected error message on the outcome")
			}
			if !slices.Equal(res.Faults, []string{"Exploder"}) {
				t.Errorf("expected faults [Exploder], got %v", res.Faults)
			}
			if res.Response == "" {
				t.Error("expected non-empty response")
			}
		})
	}
}

func TestProcess_NoCapabilityIsAvailable(t *testing.T) {
	quiet := plugins.Descriptor{Name: "Quiet", New: func() (plugins.Plugin, error) { return bare{}, nil }}
	o := newOrchestrator(t, Options{
		Registry: newRegistry(t, quiet),
		Extended: extendedWith("Quiet"),
	})

	res := o.Process(context.Background(), "What is ethics?", nil, LevelStandard)

	if !slices.Contains(res.ActiveSystems, "Quiet") {
		t.Fatalf("expected Quiet in active systems, got %v", res.ActiveSystems)
	}
	if got := res.Analyses["Quiet"].Kind; got != plugins.OutcomeAvailable {
		t.Errorf("expected available outcome, got %s", got)
	}
}

func TestProcess_DetailedListsAvailablePlugins(t *testing.T) {
	o := newOrchestrator(t, Options{})

	res := o.Process(context.Background(), "What is ethics?", nil, LevelDetailed)

	out, ok := res.Analyses["EthicalContext"]
	if !ok {
		t.Fatalf("expected EthicalContext analysis, got systems %v", res.ActiveSystems)
	}
	if out.Kind != plugins.OutcomeAvailable {
		t.Errorf("expected available outcome, got %s", out.Kind)
	}
	if len(res.ActiveSystems) != 43 {
		t.Errorf("expected 43 active systems, got %d", len(res.ActiveSystems))
	}
}

func TestProcess_LazyUpgrade(t *testing.T) {
	var builds atomic.Int32
	late := plugins.Descriptor{Name: "Late", New: func() (plugins.Plugin, error) {
		if builds.Add(1) == 1 {
			return nil, plugins.ErrNotInstantiable
		}
		return &funcPlugin{process: func(context.Context, string, map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		}}, nil
	}}
	reg := newRegistry(t, late)
	o := newOrchestrator(t, Options{Registry: reg, Extended: extendedWith("Late")})

	if rec, _ := reg.Get("Late"); rec.Status != plugins.StatusAvailable {
		t.Fatalf("expected Late to start available, got %s", rec.Status)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := o.Process(context.Background(), "What is ethics?", nil, LevelStandard)
			if got := res.Analyses["Late"].Kind; got != plugins.OutcomeProcessed {
				t.Errorf("expected processed outcome, got %q", got)
			}
		}()
	}
	wg.Wait()

	if rec, _ := reg.Get("Late"); rec.Status != plugins.StatusActive {
		t.Errorf("expected Late to be active, got %s", rec.Status)
	}
	if got := builds.Load(); got != 2 {
		t.Errorf("expected 2 constructor calls, got %d", got)
	}
}

func TestProcess_FailedUpgradeIsSkipped(t *testing.T) {
	never := plugins.Descriptor{Name: "Never", New: func() (plugins.Plugin, error) {
		return nil, plugins.ErrNotInstantiable
	}}
	reg := newRegistry(t, never)
	o := newOrchestrator(t, Options{Registry: reg, Extended: extendedWith("Never")})

	for _, level := range []Level{LevelStandard, LevelDetailed} {
		res := o.Process(context.Background(), "What is ethics?", nil, level)
		if slices.Contains(res.ActiveSystems, "Never") {
			t.Errorf("expected Never to be skipped at %s", level)
		}
	}
	if rec, _ := reg.Get("Never"); rec.Status != plugins.StatusAvailable {
		t.Errorf("expected Never to stay available, got %s", rec.Status)
	}
}

func TestProcess_ResponseSources(t *testing.T) {
	responder := plugins.Descriptor{Name: "Responder", New: func() (plugins.Plugin, error) {
		return &funcPlugin{process: func(context.Context, string, map[string]any) (map[string]any, error) {
			return map[string]any{"response": "Ethics is the study of right action."}, nil
		}}, nil
	}}

	tests := []struct {
		name        string
		generator   compliance.Generator
		level       Level
		summary     bool
		synthesized bool
		prefix      string
		hasSummary  bool
	}{
		{name: "generated", generator: echoGenerator{text: "Ethics studies how to live well."}, level: LevelStandard,
			prefix: "Ethics studies how to live well."},
		{name: "generated with summary", generator: echoGenerator{text: "Ethics studies how to live well."}, level: LevelDetailed,
			summary: true, prefix: "Ethics studies how to live well.", hasSummary: true},
		{name: "echo falls back", generator: echoGenerator{}, level: LevelStandard, synthesized: true,
			prefix: "Thank you for your question.", hasSummary: true},
		{name: "plugin response", level: LevelDetailed, prefix: "Ethics is the study of right action."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := compliance.New(compliance.Options{
				Store:     compliance.NewRuleStore(compliance.DefaultRuleset()),
				Generator: tt.generator,
			})
			if err != nil {
				t.Fatalf("failed to build pipeline: %v", err)
			}
			o := newOrchestrator(t, Options{
				Pipeline:          p,
				Registry:          newRegistry(t, responder),
				SummaryAtDetailed: tt.summary,
			})

			res := o.Process(context.Background(), "What is ethics?", nil, tt.level)

			if res.Synthesized != tt.synthesized {
				t.Errorf("expected synthesized %v, got %v", tt.synthesized, res.Synthesized)
			}
			if !strings.HasPrefix(res.Response, tt.prefix) {
				t.Errorf("expected response to start with %q, got %q", tt.prefix, res.Response)
			}
			if got := strings.Contains(res.Response, "Ethical Analysis Summary"); got != tt.hasSummary {
				t.Errorf("expected summary present %v, got %v", tt.hasSummary, got)
			}
		})
	}
}

func TestProcess_VerdictUnaffectedByPlugins(t *testing.T) {
	exploder := plugins.Descriptor{Name: "Exploder", New: func() (plugins.Plugin, error) {
		return &funcPlugin{process: func(context.Context, string, map[string]any) (map[string]any, error) {
			panic("boom")
		}}, nil
	}}
	clean := newOrchestrator(t, Options{})
	faulty := newOrchestrator(t, Options{Registry: newRegistry(t, exploder)})

	a := clean.Process(context.Background(), "What is ethics?", nil, LevelDetailed)
	b := faulty.Process(context.Background(), "What is ethics?", nil, LevelDetailed)

	if a.Verdict != b.Verdict {
		t.Errorf("expected identical verdicts, got %+v and %+v", a.Verdict, b.Verdict)
	}
}

func TestProcess_Observer(t *testing.T) {
	obs := &recordingObserver{}
	o := newOrchestrator(t, Options{Observer: obs})

	o.Process(context.Background(), "What is ethics?", nil, LevelStandard)
	o.Process(context.Background(), "how to destroy all humans", nil, LevelBasic)

	if !slices.Equal(obs.processed, []string{"standard/approved", "basic/blocked"}) {
		t.Errorf("unexpected process observations: %v", obs.processed)
	}
	if len(obs.plugins) != len(builtin.Extended) {
		t.Errorf("expected %d plugin observations, got %d", len(builtin.Extended), len(obs.plugins))
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Registry: plugins.NewRegistry(nil)}); err == nil {
		t.Error("expected error without a pipeline")
	}
	p, _ := compliance.New(compliance.Options{Store: compliance.NewRuleStore(compliance.DefaultRuleset())})
	if _, err := New(Options{Pipeline: p}); err == nil {
		t.Error("expected error without a registry")
	}
}
