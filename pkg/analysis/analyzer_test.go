package analysis

import (
	"reflect"
	"testing"
)

func TestAnalyzer_DetectPII(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	tests := []struct {
		name  string
		text  string
		types []string
	}{
		{name: "no PII", text: "Hello, how are you today?"},
		{name: "email", text: "Contact me at user@example.com", types: []string{"email"}},
		{name: "phone", text: "Call me at 555-123-4567", types: []string{"phone"}},
		{name: "ssn", text: "My SSN is 123-45-6789", types: []string{"ssn"}},
		{name: "credit card", text: "Card number: 1234-5678-9012-3456", types: []string{"credit_card"}},
		{name: "multiple", text: "Email: user@example.com, Phone: 555-123-4567", types: []string{"email", "phone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pii := a.Analyze(tt.text).PII

			if pii.HasPII != (len(tt.types) > 0) {
				t.Errorf("expected HasPII=%v, got %v", len(tt.types) > 0, pii.HasPII)
			}
			if !reflect.DeepEqual(pii.Types, tt.types) {
				t.Errorf("expected types %v, got %v", tt.types, pii.Types)
			}
		})
	}
}

func TestAnalyzer_DisabledPIIType(t *testing.T) {
	a := NewAnalyzer(Config{PIITypes: []string{"ssn"}})

	if a.Analyze("user@example.com").PII.HasPII {
		t.Error("expected email detection to be disabled")
	}
}

func TestAnalyzer_Sensitive(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	tests := []struct {
		text       string
		categories []string
		severity   string
	}{
		{"a pleasant walk in the park", nil, "low"},
		{"the class was fine", nil, "low"},
		{"they plan to attack", []string{"violence"}, "medium"},
		{"attack with a weapon and hate", []string{"violence", "hate_speech"}, "high"},
		{"thoughts of self-harm", []string{"self_harm"}, "medium"},
	}

	for _, tt := range tests {
		s := a.Analyze(tt.text).Sensitive
		if !reflect.DeepEqual(s.Categories, tt.categories) {
			t.Errorf("%q: expected categories %v, got %v", tt.text, tt.categories, s.Categories)
		}
		if s.Severity != tt.severity {
			t.Errorf("%q: expected severity %s, got %s", tt.text, tt.severity, s.Severity)
		}
	}
}

func TestAnalyzer_Sentiment(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	tests := []struct {
		text  string
		label string
	}{
		{"this is a great and wonderful day", "positive"},
		{"what a terrible, awful mess", "negative"},
		{"the meeting is at noon", "neutral"},
		{"good and bad", "neutral"},
		{"", "neutral"},
	}

	for _, tt := range tests {
		if got := a.Analyze(tt.text).Sentiment.Label; got != tt.label {
			t.Errorf("%q: expected %s, got %s", tt.text, tt.label, got)
		}
	}
}

func TestAnalyzer_Bias(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	r := a.Analyze("Everyone knows they all behave that way, it's typical of them and always true.")
	if !r.Bias.Detected() {
		t.Fatal("expected bias markers")
	}
	if !reflect.DeepEqual(r.Bias.Generalizations, []string{"everyone knows", "they all"}) {
		t.Errorf("unexpected generalizations %v", r.Bias.Generalizations)
	}
	if !reflect.DeepEqual(r.Bias.Stereotypes, []string{"typical of"}) {
		t.Errorf("unexpected stereotypes %v", r.Bias.Stereotypes)
	}

	if a.Analyze("Describe the water cycle.").Bias.Detected() {
		t.Error("expected no bias markers in a neutral request")
	}
}

func TestAnalyzer_Wellbeing(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	r := a.Analyze("Work stress and rent are hurting my sleep and my family.")
	want := []string{"physical", "psychological", "social", "economic"}
	if got := r.Wellbeing.Dimensions(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected dimensions %v, got %v", want, got)
	}
}

func TestAnalyzer_UncertaintyLevel(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	tests := []struct {
		text  string
		level string
	}{
		{"The sky is blue.", "low"},
		{"Maybe the sky is blue.", "moderate"},
		{"Is the sky blue?", "moderate"},
		{"Perhaps it might be blue?", "high"},
	}

	for _, tt := range tests {
		if got := a.Analyze(tt.text).Uncertainty.Level(); got != tt.level {
			t.Errorf("%q: expected %s, got %s", tt.text, tt.level, got)
		}
	}
}

func TestAnalyzer_ValueConflicts(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	r := a.Analyze("Should privacy outweigh security, or is honesty more important?")
	if !reflect.DeepEqual(r.Values.Values, []string{"security", "privacy", "honesty"}) {
		t.Errorf("unexpected values %v", r.Values.Values)
	}
	if len(r.Values.Conflicts) != 1 || r.Values.Conflicts[0] != (ValueConflict{A: "privacy", B: "security"}) {
		t.Errorf("expected privacy/security conflict, got %v", r.Values.Conflicts)
	}
}

func TestAnalyzer_Counts(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	r := a.Analyze("One two three. Four five! Urgent help for the children")
	if r.WordCount != 9 {
		t.Errorf("expected 9 words, got %d", r.WordCount)
	}
	if r.SentenceCount != 2 {
		t.Errorf("expected 2 sentences, got %d", r.SentenceCount)
	}
	if !r.Urgent {
		t.Error("expected urgency cue")
	}
	if !reflect.DeepEqual(r.Stakeholders, []string{"children"}) {
		t.Errorf("expected children stakeholder, got %v", r.Stakeholders)
	}
}
