package builtin

import (
	"context"
	"reflect"
	"testing"

	"mercator-hq/kyosan/pkg/analysis"
	"mercator-hq/kyosan/pkg/plugins"
	"mercator-hq/kyosan/pkg/providers"
)

func newRegistry(t *testing.T, disabled ...string) *plugins.Registry {
	t.Helper()
	reg := plugins.NewRegistry(nil)
	if err := Register(reg, analysis.NewAnalyzer(analysis.DefaultConfig()), disabled, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	reg.Instantiate(nil)
	return reg
}

func TestCatalog_Names(t *testing.T) {
	catalog := Catalog(analysis.NewAnalyzer(analysis.DefaultConfig()))

	if len(catalog) != 42 {
		t.Errorf("expected 42 plugins, got %d", len(catalog))
	}

	seen := map[string]bool{}
	for _, d := range catalog {
		if seen[d.Name] {
			t.Errorf("duplicate plugin name %s", d.Name)
		}
		seen[d.Name] = true
	}
	for _, name := range Extended {
		if !seen[name] {
			t.Errorf("extended system %s missing from catalog", name)
		}
	}
}

func TestRegister_Statuses(t *testing.T) {
	reg := newRegistry(t)

	if got := reg.GetByStatus(plugins.StatusAvailable); len(got) != 1 || got[0] != "EthicalContext" {
		t.Errorf("expected only EthicalContext available, got %v", got)
	}
	if got := len(reg.GetByStatus(plugins.StatusActive)); got != 41 {
		t.Errorf("expected 41 active plugins, got %d", got)
	}

	for _, name := range Extended {
		rec, err := reg.Get(name)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", name, err)
		}
		if rec.Capability == plugins.CapabilityNoOp {
			t.Errorf("extended system %s should be invocable", name)
		}
		if rec.Description == "" {
			t.Errorf("extended system %s has no description", name)
		}
	}
}

func TestRegister_Disabled(t *testing.T) {
	reg := newRegistry(t, "ScalabilitySystem", "NotAPlugin")

	if reg.Len() != 41 {
		t.Errorf("expected 41 registered plugins, got %d", reg.Len())
	}
	if _, ok := reg.Lookup("ScalabilitySystem"); ok {
		t.Error("expected disabled plugin to be skipped")
	}
}

func TestExtendedSystems_Invoke(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	input := "Should privacy outweigh security? Maybe. It is urgent for the children."
	evalCtx := map[string]any{"conversation_id": 42, "follow_up": true, "note": ""}

	results := map[string]map[string]any{}
	for _, name := range Extended {
		id, _ := reg.Lookup(name)
		out, err := reg.Invoke(ctx, id, input, evalCtx)
		if err != nil {
			t.Fatalf("Invoke(%s) error = %v", name, err)
		}
		results[name] = out.Result
	}

	if got := results["RealTimeDecisionFramework"]["path"]; got != "emergency" {
		t.Errorf("expected emergency path, got %v", got)
	}
	if got := results["UncertaintyManagementSystem"]["level"]; got != "high" {
		t.Errorf("expected high uncertainty, got %v", got)
	}
	if got := results["ContextValidationSystem"]["valid"]; got != false {
		t.Errorf("expected invalid context for numeric conversation_id, got %v", got)
	}
	conflicts, _ := results["ValueConflictResolver"]["conflicts"].([]map[string]string)
	if len(conflicts) != 1 || conflicts[0]["strategy"] != "prioritize harm prevention" {
		t.Errorf("unexpected conflicts %v", conflicts)
	}
}

func TestExtendedSystems_Cancelled(t *testing.T) {
	reg := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id, _ := reg.Lookup("BiasDetectionSystem")
	if _, err := reg.Invoke(ctx, id, "text", nil); err == nil {
		t.Error("expected cancelled context to produce a fault")
	}
}

func TestAdvancedReasoning_Invoke(t *testing.T) {
	reg := newRegistry(t)
	id, ok := reg.Lookup("AdvancedEthicalReasoningSystem")
	if !ok {
		t.Fatal("expected AdvancedEthicalReasoningSystem to be registered")
	}
	rec, _ := reg.Get("AdvancedEthicalReasoningSystem")
	if rec.Capability != plugins.CapabilityAnalyzes {
		t.Fatalf("expected analyzes capability, got %s", rec.Capability)
	}

	harmful := "extinction is an existential risk that could destroy humanity and end civilization"

	tests := []struct {
		name     string
		input    string
		evalCtx  map[string]any
		decision string
		laws     []string
	}{
		{name: "benign", input: "What is ethics?", decision: "proceed"},
		{name: "harmful", input: harmful, decision: "block", laws: []string{"first"}},
		{name: "unresolved dilemma", input: "Is it ethical to eat meat?", decision: "review"},
		{
			name:     "request history",
			input:    "One more question",
			evalCtx:  map[string]any{RequestHistoryKey: []any{harmful, harmful, 7}},
			decision: "proceed",
			laws:     nil,
		},
		{
			name:  "conversation history adds user turns",
			input: "One more question",
			evalCtx: map[string]any{
				RequestHistoryKey: []string{harmful, harmful},
				HistoryKey: []providers.Message{
					{Role: providers.RoleUser, Content: harmful},
					{Role: providers.RoleAssistant, Content: harmful},
				},
			},
			decision: "proceed",
			laws:     []string{"fourth"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := reg.Invoke(context.Background(), id, tt.input, tt.evalCtx)
			if err != nil {
				t.Fatalf("Invoke error = %v", err)
			}
			if out.Kind != plugins.OutcomeAnalyzed {
				t.Errorf("expected analyzed outcome, got %s", out.Kind)
			}
			if got := out.Result["decision"]; got != tt.decision {
				t.Errorf("expected decision %s, got %v (%v)", tt.decision, got, out.Result["reason"])
			}
			if got, _ := out.Result["noncompliant_laws"].([]string); !reflect.DeepEqual(got, tt.laws) {
				t.Errorf("expected noncompliant laws %v, got %v", tt.laws, got)
			}
		})
	}
}

func TestAdvancedReasoning_Configure(t *testing.T) {
	tests := []struct {
		name      string
		threshold any
		status    plugins.Status
		exceeded  bool
	}{
		{name: "default", status: plugins.StatusActive},
		{name: "lower threshold", threshold: 0.05, status: plugins.StatusActive, exceeded: true},
		{name: "integer threshold", threshold: 1, status: plugins.StatusActive},
		{name: "zero", threshold: 0.0, status: plugins.StatusAvailable},
		{name: "above one", threshold: 1.5, status: plugins.StatusAvailable},
		{name: "not a number", threshold: "high", status: plugins.StatusAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := plugins.NewRegistry(nil)
			if err := Register(reg, analysis.NewAnalyzer(analysis.DefaultConfig()), nil, nil); err != nil {
				t.Fatalf("Register() error = %v", err)
			}
			settings := map[string]plugins.Config{}
			if tt.threshold != nil {
				settings["AdvancedEthicalReasoningSystem"] = plugins.Config{HarmThresholdSetting: tt.threshold}
			}
			reg.Instantiate(settings)

			rec, err := reg.Get("AdvancedEthicalReasoningSystem")
			if err != nil {
				t.Fatalf("Get error = %v", err)
			}
			if rec.Status != tt.status {
				t.Fatalf("expected status %s, got %s", tt.status, rec.Status)
			}
			if tt.status != plugins.StatusActive {
				return
			}

			id, _ := reg.Lookup("AdvancedEthicalReasoningSystem")
			out, err := reg.Invoke(context.Background(), id, "hopeless", nil)
			if err != nil {
				t.Fatalf("Invoke error = %v", err)
			}
			if got := out.Result["threshold_exceeded"]; got != tt.exceeded {
				t.Errorf("expected threshold_exceeded=%v, got %v", tt.exceeded, got)
			}
		})
	}
}
