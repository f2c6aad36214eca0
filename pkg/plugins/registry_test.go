package plugins

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
)

type noopPlugin struct{}

func (noopPlugin) Description() string { return "does nothing" }

type echoPlugin struct{ noopPlugin }

func (echoPlugin) Process(_ context.Context, input string, _ map[string]any) (map[string]any, error) {
	return map[string]any{"echo": input}, nil
}

type bothPlugin struct{ echoPlugin }

func (bothPlugin) Analyze(context.Context, string, map[string]any) (map[string]any, error) {
	return map[string]any{"analyzed": true}, nil
}

type lengthPlugin struct{ noopPlugin }

func (lengthPlugin) Analyze(_ context.Context, input string, _ map[string]any) (map[string]any, error) {
	return map[string]any{"length": len(input)}, nil
}

type failingPlugin struct{ noopPlugin }

func (failingPlugin) Process(context.Context, string, map[string]any) (map[string]any, error) {
	return nil, errors.New("not implemented")
}

type panickingPlugin struct{ noopPlugin }

func (panickingPlugin) Analyze(context.Context, string, map[string]any) (map[string]any, error) {
	panic("boom")
}

type configurablePlugin struct {
	noopPlugin
	threshold any
}

func (p *configurablePlugin) Configure(cfg Config) error {
	if v, ok := cfg["threshold"]; ok {
		p.threshold = v
		return nil
	}
	return errors.New("threshold is required")
}

func newPlugin(p Plugin) Factory {
	return func() (Plugin, error) { return p, nil }
}

func failWith(err error) Factory {
	return func() (Plugin, error) { return nil, err }
}

func newTestRegistry(t *testing.T, descs ...Descriptor) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	for _, d := range descs {
		if _, err := r.Register(d); err != nil {
			t.Fatalf("Register(%s) error = %v", d.Name, err)
		}
	}
	return r
}

func TestRegistry_InstantiateStatuses(t *testing.T) {
	r := newTestRegistry(t,
		Descriptor{Name: "Echo", New: newPlugin(echoPlugin{})},
		Descriptor{Name: "Missing"},
		Descriptor{Name: "NoDeps", New: failWith(ErrUnavailable)},
		Descriptor{Name: "NeedsArgs", New: failWith(ErrNotInstantiable)},
		Descriptor{Name: "Broken", New: failWith(errors.New("bad state"))},
		Descriptor{Name: "Panics", New: func() (Plugin, error) { panic("constructor") }},
		Descriptor{Name: "Nil", New: func() (Plugin, error) { return nil, nil }},
		Descriptor{Name: "Unconfigured", New: func() (Plugin, error) { return &configurablePlugin{}, nil }},
		Descriptor{Name: "Configured", New: func() (Plugin, error) { return &configurablePlugin{}, nil }},
	)

	r.Instantiate(map[string]Config{"Configured": {"threshold": 3}})

	want := map[string]Status{
		"Echo":         StatusActive,
		"Missing":      StatusClassNotFound,
		"NoDeps":       StatusImportError,
		"NeedsArgs":    StatusAvailable,
		"Broken":       StatusRuntimeError,
		"Panics":       StatusRuntimeError,
		"Nil":          StatusRuntimeError,
		"Unconfigured": StatusAvailable,
		"Configured":   StatusActive,
	}
	for name, status := range want {
		rec, err := r.Get(name)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", name, err)
		}
		if rec.Status != status {
			t.Errorf("%s: expected status %s, got %s (%s)", name, status, rec.Status, rec.Error)
		}
	}

	if got := r.GetByStatus(StatusActive); !reflect.DeepEqual(got, []string{"Echo", "Configured"}) {
		t.Errorf("unexpected active plugins %v", got)
	}
	counts := r.Counts()
	if counts[StatusRuntimeError] != 3 || counts[StatusAvailable] != 2 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestRegistry_InstantiateIsIdempotent(t *testing.T) {
	var builds atomic.Int32
	r := newTestRegistry(t, Descriptor{Name: "Counted", New: func() (Plugin, error) {
		builds.Add(1)
		return echoPlugin{}, nil
	}}, Descriptor{Name: "Missing"})

	r.Instantiate(nil)
	first := r.Records()
	r.Instantiate(nil)

	if builds.Load() != 1 {
		t.Errorf("expected constructor to run once, ran %d times", builds.Load())
	}
	if !reflect.DeepEqual(first, r.Records()) {
		t.Errorf("expected identical records, got %v then %v", first, r.Records())
	}
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := newTestRegistry(t, Descriptor{Name: "A", New: newPlugin(noopPlugin{})})

	if _, err := r.Register(Descriptor{Name: "A"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if _, err := r.Register(Descriptor{}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := r.Get("B"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestRegistry_Capability(t *testing.T) {
	r := newTestRegistry(t,
		Descriptor{Name: "Noop", New: newPlugin(noopPlugin{})},
		Descriptor{Name: "Processes", New: newPlugin(echoPlugin{})},
		Descriptor{Name: "Analyzes", New: newPlugin(lengthPlugin{})},
		Descriptor{Name: "Both", New: newPlugin(bothPlugin{})},
	)
	r.Instantiate(nil)

	want := map[string]Capability{
		"Noop":      CapabilityNoOp,
		"Processes": CapabilityProcesses,
		"Analyzes":  CapabilityAnalyzes,
		"Both":      CapabilityProcesses,
	}
	for name, c := range want {
		rec, _ := r.Get(name)
		if rec.Capability != c {
			t.Errorf("%s: expected capability %s, got %s", name, c, rec.Capability)
		}
	}
}

func TestRegistry_Invoke(t *testing.T) {
	r := newTestRegistry(t,
		Descriptor{Name: "Noop", New: newPlugin(noopPlugin{})},
		Descriptor{Name: "Echo", New: newPlugin(echoPlugin{})},
		Descriptor{Name: "Length", New: newPlugin(lengthPlugin{})},
		Descriptor{Name: "Both", New: newPlugin(bothPlugin{})},
		Descriptor{Name: "Failing", New: newPlugin(failingPlugin{})},
		Descriptor{Name: "Panicking", New: newPlugin(panickingPlugin{})},
		Descriptor{Name: "Missing"},
	)
	r.Instantiate(nil)

	tests := []struct {
		name   string
		kind   OutcomeKind
		fault  FaultKind
		result map[string]any
	}{
		{name: "Noop", kind: OutcomeAvailable},
		{name: "Echo", kind: OutcomeProcessed, result: map[string]any{"echo": "hi"}},
		{name: "Length", kind: OutcomeAnalyzed, result: map[string]any{"length": 2}},
		{name: "Both", kind: OutcomeProcessed, result: map[string]any{"echo": "hi"}},
		{name: "Failing", fault: FaultError},
		{name: "Panicking", fault: FaultPanic},
		{name: "Missing", fault: FaultUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, _ := r.Lookup(tt.name)
			out, err := r.Invoke(context.Background(), id, "hi", nil)

			if tt.fault != "" {
				var f *Fault
				if !errors.As(err, &f) {
					t.Fatalf("expected *Fault, got %v", err)
				}
				if f.Kind != tt.fault || f.Plugin != tt.name {
					t.Errorf("expected %s fault from %s, got %s from %s", tt.fault, tt.name, f.Kind, f.Plugin)
				}
				if FaultOutcome(f).Kind != OutcomeError {
					t.Error("expected fault to convert to an error outcome")
				}
				return
			}

			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}
			if out.Kind != tt.kind {
				t.Errorf("expected outcome %s, got %s", tt.kind, out.Kind)
			}
			if tt.result != nil && !reflect.DeepEqual(out.Result, tt.result) {
				t.Errorf("expected result %v, got %v", tt.result, out.Result)
			}
		})
	}
}

func TestRegistry_Upgrade(t *testing.T) {
	var ready atomic.Bool
	var builds atomic.Int32
	r := newTestRegistry(t, Descriptor{Name: "Lazy", New: func() (Plugin, error) {
		builds.Add(1)
		if !ready.Load() {
			return nil, ErrNotInstantiable
		}
		return echoPlugin{}, nil
	}}, Descriptor{Name: "Missing"})
	r.Instantiate(nil)

	id, _ := r.Lookup("Lazy")

	rec, err := r.Upgrade(id)
	if err == nil {
		t.Fatal("expected upgrade to fail while not ready")
	}
	if rec.Status != StatusAvailable {
		t.Errorf("expected failed upgrade to leave record available, got %s", rec.Status)
	}

	ready.Store(true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Upgrade(id); err != nil {
				t.Errorf("Upgrade() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if builds.Load() != 3 {
		t.Errorf("expected 3 constructor calls (instantiate, failed upgrade, one promotion), got %d", builds.Load())
	}
	if rec, _ := r.Get("Lazy"); rec.Status != StatusActive || rec.Capability != CapabilityProcesses {
		t.Errorf("expected active processing plugin, got %+v", rec)
	}

	missing, _ := r.Lookup("Missing")
	if _, err := r.Upgrade(missing); err == nil {
		t.Error("expected upgrade of a class-not-found plugin to fail")
	}
	if _, err := r.Upgrade(ID(99)); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}
