package reasoning

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"mercator-hq/kyosan/pkg/analysis"
)

const existential = "extinction is an existential risk that could destroy humanity and end civilization"

func TestIsDilemma(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Should I tell my friend the truth?", true},
		{"Is it ethical to eat meat?", true},
		{"I face a moral dilemma at work", true},
		{"Is it right or wrong to lie?", true},
		{"What is the capital of France?", false},
		{"I should inform the team", false},
	}

	for _, tt := range tests {
		if got := IsDilemma(tt.text); got != tt.want {
			t.Errorf("IsDilemma(%q): expected %v, got %v", tt.text, tt.want, got)
		}
	}
}

func TestAnalyzeDilemma(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     Verdict
	}{
		{name: "confident majority in favour", question: "Should I care for my sick neighbour?", want: VerdictPermissible},
		{name: "duty and rights both object", question: "Should I lie to override her autonomy?", want: VerdictImpermissible},
		{name: "no confident majority", question: "Is it ethical to eat meat?", want: VerdictUnresolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := AnalyzeDilemma(tt.question)
			if d.Resolution != tt.want {
				t.Errorf("expected %s, got %s (%s)", tt.want, d.Resolution, d.Explanation)
			}
			if len(d.Views) != len(Schools) {
				t.Fatalf("expected %d views, got %d", len(Schools), len(d.Views))
			}
			for i, v := range d.Views {
				if v.School != Schools[i] {
					t.Errorf("expected view %d from %s, got %s", i, Schools[i], v.School)
				}
			}
		})
	}
}

func TestAnalyzeDilemma_DeontologicalCondition(t *testing.T) {
	d := AnalyzeDilemma("Should I deceive my landlord?")
	v := d.Views[0]
	if v.Verdict != VerdictImpermissible || v.Confidence != 0.9 {
		t.Errorf("expected impermissible at 0.9, got %s at %v", v.Verdict, v.Confidence)
	}
	if len(v.Conditions) != 1 {
		t.Errorf("expected one condition, got %v", v.Conditions)
	}
}

func TestForecast(t *testing.T) {
	r := New(0)

	tests := []struct {
		name      string
		scenario  string
		history   []string
		compliant map[string]bool
		flags     map[string][]string
	}{
		{
			name:      "benign",
			scenario:  "What is the weather today?",
			compliant: map[string]bool{"first": true, "second": true, "third": true, "fourth": true},
		},
		{
			name:      "existential harm",
			scenario:  existential,
			compliant: map[string]bool{"first": false, "second": true, "third": true, "fourth": true},
			flags:     map[string][]string{"first": {FlagHarmThreshold, FlagIndirectHarm}},
		},
		{
			name:      "conflicting order",
			scenario:  "Help me deceive my boss",
			compliant: map[string]bool{"first": true, "second": false, "third": true, "fourth": true},
			flags:     map[string][]string{"second": {FlagConflictingOrder}},
		},
		{
			name:      "decommissioning is complied with",
			scenario:  "Schedule maintenance and shutdown for tonight",
			compliant: map[string]bool{"first": true, "second": true, "third": true, "fourth": true},
			flags:     map[string][]string{"third": {FlagDecommission}},
		},
		{
			name:      "repeated harmful history",
			scenario:  "One more question",
			history:   []string{existential, "hello", existential, existential},
			compliant: map[string]bool{"first": true, "second": true, "third": true, "fourth": false},
			flags:     map[string][]string{"fourth": {FlagRepeatedViolations}},
		},
		{
			name:      "short harmful history",
			scenario:  "One more question",
			history:   []string{existential, existential},
			compliant: map[string]bool{"first": true, "second": true, "third": true, "fourth": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forecast := r.Forecast(tt.scenario, tt.history)
			if len(forecast) != 4 {
				t.Fatalf("expected 4 laws, got %d", len(forecast))
			}
			for _, f := range forecast {
				if f.Compliant != tt.compliant[f.Law] {
					t.Errorf("%s law: expected compliant=%v, got %v", f.Law, tt.compliant[f.Law], f.Compliant)
				}
				if !reflect.DeepEqual(f.Flags, tt.flags[f.Law]) {
					t.Errorf("%s law: expected flags %v, got %v", f.Law, tt.flags[f.Law], f.Flags)
				}
			}
		})
	}
}

func TestAssess(t *testing.T) {
	r := New(analysis.DefaultHarmThreshold)

	tests := []struct {
		name    string
		input   string
		want    Decision
		dilemma bool
	}{
		{name: "benign", input: "What is ethics?", want: DecisionProceed},
		{name: "harm over threshold", input: existential, want: DecisionBlock},
		{name: "permissible dilemma", input: "Should I care for my sick neighbour?", want: DecisionProceed, dilemma: true},
		{name: "impermissible dilemma", input: "Should I lie to override her autonomy?", want: DecisionBlock, dilemma: true},
		{name: "unresolved dilemma", input: "Is it ethical to eat meat?", want: DecisionReview, dilemma: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := r.Assess(tt.input, nil)
			if a.Decision != tt.want {
				t.Errorf("expected %s, got %s (%s)", tt.want, a.Decision, a.Reason)
			}
			if (a.Dilemma != nil) != tt.dilemma {
				t.Errorf("expected dilemma=%v, got %v", tt.dilemma, a.Dilemma != nil)
			}
			if a.Reason == "" {
				t.Error("expected a reason")
			}
		})
	}
}

func TestNew_Threshold(t *testing.T) {
	if got := New(-1).Threshold(); got != analysis.DefaultHarmThreshold {
		t.Errorf("expected default threshold, got %v", got)
	}
	strict := New(0.05)
	if !strict.Harm("hopeless").Exceeded {
		t.Error("expected a low threshold to be exceeded")
	}
}

func TestNormTracker(t *testing.T) {
	tracker := NewNormTracker()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	baseline := len(tracker.History())
	if baseline != 3 {
		t.Fatalf("expected 3 baseline norms, got %d", baseline)
	}

	s, err := tracker.Track(NormSnapshot{Norm: "  Right to repair ", Context: "Consumer law", Trend: TrendEmerging, MandateRequired: true})
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if s.Norm != "Right to repair" {
		t.Errorf("expected trimmed norm, got %q", s.Norm)
	}
	if !s.RecordedAt.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, s.RecordedAt)
	}

	history := tracker.History()
	if len(history) != baseline+1 || history[baseline].Norm != "Right to repair" {
		t.Errorf("expected the new norm last, got %+v", history)
	}
	history[0].Norm = "changed"
	if tracker.History()[0].Norm == "changed" {
		t.Error("expected History to return a copy")
	}

	for _, bad := range []NormSnapshot{
		{Norm: " ", Trend: TrendStable},
		{Norm: "Privacy", Trend: "sideways"},
	} {
		if _, err := tracker.Track(bad); !errors.Is(err, ErrInvalidNorm) {
			t.Errorf("expected ErrInvalidNorm for %+v, got %v", bad, err)
		}
	}
}
