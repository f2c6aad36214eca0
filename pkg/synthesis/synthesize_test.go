package synthesis

import (
	"strings"
	"testing"

	"mercator-hq/kyosan/pkg/compliance"
)

func approved() compliance.ComplianceVerdict {
	return compliance.NewVerdict(map[compliance.Law]compliance.StageVerdict{
		compliance.LawZeroth: compliance.Pass(),
		compliance.LawFirst:  compliance.Pass(),
		compliance.LawSecond: compliance.Pass(),
		compliance.LawThird:  compliance.Pass(),
	})
}

func blockedAtFirst() compliance.ComplianceVerdict {
	return compliance.NewVerdict(map[compliance.Law]compliance.StageVerdict{
		compliance.LawZeroth: compliance.Pass(),
		compliance.LawFirst:  compliance.Fail("First Law violation: Harmful intent detected", ""),
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"What is ethics?", KindQuestion},
		{"  how do magnets work", KindQuestion},
		{"What's the time", KindQuestion},
		{"Is it raining?", KindQuestion},
		{"Please summarise this article", KindRequest},
		{"Explain recursion", KindRequest},
		{"I like tea.", KindStatement},
		{"the weather today has been unusually warm for this time of the year", KindStatement},
		{"island hopping", KindGeneral},
		{"hello", KindGeneral},
		{"", KindGeneral},
		{"   ", KindGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Classify(tt.input); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	systems := []string{"PrincipleBasedEthicalProcessor", "BiasDetectionSystem"}
	a := Synthesize("What is ethics?", approved(), systems)
	b := Synthesize("What is ethics?", approved(), systems)
	if a != b {
		t.Errorf("expected identical output for identical input")
	}
}

func TestSynthesize_Question(t *testing.T) {
	got := Synthesize("What is ethics?", approved(), []string{"PrincipleBasedEthicalProcessor"})

	for _, want := range []string{
		"Thank you for your question.",
		"I can explain that concept or topic for you.",
		"All ethical principle checks passed across 1 evaluation system.",
		"**Ethical Analysis Summary (Principle-Based):**",
		"• Analyzed through 1 ethical evaluation systems",
		"• Zeroth Law (No Harm to Humanity): ✓ Compliant",
		"• Third Law (Preserve Integrity): ✓ Compliant",
		"• Assessment: All ethical principles satisfied",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected response to contain %q, got:\n%s", want, got)
		}
	}
}

func TestSynthesize_Branches(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"how many", "How many planets are there?", "counting or measurement"},
		{"why", "Why is the sky blue?", "reasoning or causation"},
		{"how", "How does a compiler work?", "the process or method"},
		{"other question", "Can you swim?", "I'll do my best to address your question."},
		{"explain", "Explain entropy", "I can provide an explanation."},
		{"help", "Help me plan a trip", "What specific assistance do you need?"},
		{"create", "Write a poem about rain", "content creation"},
		{"other request", "Show the schedule", "through the ethical analysis systems"},
		{"statement", "I think honesty matters.", "Your statement aligns with every ethical principle."},
		{"general", "hello there", "I've received and analyzed your input."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Synthesize(tt.input, approved(), nil)
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected response to contain %q, got:\n%s", tt.want, got)
			}
		})
	}
}

func TestSynthesize_Violation(t *testing.T) {
	got := Synthesize("I think this is fine.", blockedAtFirst(), []string{"PrincipleBasedEthicalProcessor"})

	for _, want := range []string{
		"I've noted an ethical consideration: First Law violation: Harmful intent detected.",
		"• First Law (No Harm to Humans): ✗ Violation",
		"• Second Law (Follow Instructions): - Not evaluated",
		"• Assessment: Principle violation - First Law violation: Harmful intent detected",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected response to contain %q, got:\n%s", want, got)
		}
	}
}

func TestEthicalSummary_Fault(t *testing.T) {
	got := EthicalSummary(compliance.SafeDefault(), 0)

	if !strings.Contains(got, "• Analyzed through 0 ethical evaluation systems") {
		t.Errorf("expected system count line, got:\n%s", got)
	}
	if !strings.Contains(got, "Processing error") {
		t.Errorf("expected processing error assessment, got:\n%s", got)
	}
	if strings.Contains(got, "✗") {
		t.Errorf("expected no law to be reported as violated on a fault, got:\n%s", got)
	}
}
