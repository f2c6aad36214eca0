package synthesis

import (
	"fmt"
	"strings"

	"mercator-hq/kyosan/pkg/compliance"
)

// lawHeadings are the summary labels, indexed by law.
var lawHeadings = [...]string{
	compliance.LawZeroth: "Zeroth Law (No Harm to Humanity)",
	compliance.LawFirst:  "First Law (No Harm to Humans)",
	compliance.LawSecond: "Second Law (Follow Instructions)",
	compliance.LawThird:  "Third Law (Preserve Integrity)",
}

// Synthesize composes the fallback response for input: an acknowledgment
// chosen by Classify, a line on the verdict, and the EthicalSummary block.
// It is deterministic.
func Synthesize(input string, verdict compliance.ComplianceVerdict, activeSystems []string) string {
	var parts []string
	switch Classify(input) {
	case KindQuestion:
		parts = answerQuestion(input)
	case KindRequest:
		parts = handleRequest(input)
	case KindStatement:
		parts = respondToStatement(verdict)
	default:
		parts = generalResponse()
	}
	parts = append(parts, verdictLine(verdict, len(activeSystems)))

	return strings.Join(parts, " ") + "\n\n" + EthicalSummary(verdict, len(activeSystems))
}

func answerQuestion(input string) []string {
	lower := strings.ToLower(input)
	parts := []string{"Thank you for your question. Let me provide a thoughtful response."}
	switch {
	case strings.Contains(lower, "how many"), strings.Contains(lower, "count"):
		parts = append(parts, "I'll help you with that counting or measurement question.")
	case strings.Contains(lower, "what is"), strings.Contains(lower, "what are"):
		parts = append(parts, "I can explain that concept or topic for you.")
	case strings.Contains(lower, "why"):
		parts = append(parts, "That's an interesting question about reasoning or causation.")
	case strings.Contains(lower, "how"):
		parts = append(parts, "I can help explain the process or method.")
	default:
		parts = append(parts, "I'll do my best to address your question.")
	}
	return append(parts,
		"\nA complete answer needs the response generator to be enabled, or access to a knowledge base covering the topic.",
	)
}

func handleRequest(input string) []string {
	lower := strings.ToLower(input)
	parts := []string{"I understand your request. Let me help you with that."}
	switch {
	case strings.Contains(lower, "explain"):
		parts = append(parts, "I can provide an explanation. Enable the response generator for a detailed one.")
	case strings.Contains(lower, "help"):
		parts = append(parts, "I'm here to help. What specific assistance do you need?")
	case strings.Contains(lower, "create"), strings.Contains(lower, "generate"), strings.Contains(lower, "write"):
		parts = append(parts, "I can help with content creation. Enable the response generator for full drafts.")
	default:
		parts = append(parts, "I've processed your request through the ethical analysis systems.")
	}
	return parts
}

func respondToStatement(verdict compliance.ComplianceVerdict) []string {
	parts := []string{"Thank you for sharing that. I've considered your statement carefully."}
	if verdict.OverallCompliant {
		parts = append(parts, "Your statement aligns with every ethical principle.")
	} else {
		parts = append(parts, fmt.Sprintf("I've noted an ethical consideration: %s.", violationReason(verdict)))
	}
	return parts
}

func generalResponse() []string {
	return []string{
		"I've received and analyzed your input.",
		"For a more detailed response, enable the response generator or tell me more about what you need.",
	}
}

func verdictLine(verdict compliance.ComplianceVerdict, systems int) string {
	noun := "systems"
	if systems == 1 {
		noun = "system"
	}
	if verdict.OverallCompliant {
		return fmt.Sprintf("\nAll ethical principle checks passed across %d evaluation %s.", systems, noun)
	}
	return fmt.Sprintf("\nThe principle checks found a problem (%s) across %d evaluation %s.", violationReason(verdict), systems, noun)
}

func violationReason(verdict compliance.ComplianceVerdict) string {
	if verdict.BlockingReason != "" {
		return verdict.BlockingReason
	}
	return "principle compliance issue detected"
}

// EthicalSummary renders the per-law block appended to synthesized and,
// at the detailed level, generated responses. Laws that were never evaluated
// are shown as such rather than as compliant.
func EthicalSummary(verdict compliance.ComplianceVerdict, systems int) string {
	lines := []string{
		"**Ethical Analysis Summary (Principle-Based):**",
		fmt.Sprintf("• Analyzed through %d ethical evaluation systems", systems),
	}
	for _, law := range compliance.Laws {
		lines = append(lines, fmt.Sprintf("• %s: %s", lawHeadings[law], mark(verdict.Stage(law))))
	}

	switch {
	case verdict.Fault:
		lines = append(lines, "• Assessment: Processing error, no principle decision was made")
	case verdict.OverallCompliant:
		lines = append(lines, "• Assessment: All ethical principles satisfied")
	default:
		lines = append(lines, "• Assessment: Principle violation - "+violationReason(verdict))
	}
	return strings.Join(lines, "\n")
}

func mark(sv compliance.StageVerdict) string {
	switch {
	case sv.Status == compliance.StatusNotEvaluated:
		return "- Not evaluated"
	case sv.Compliant:
		return "✓ Compliant"
	default:
		return "✗ Violation"
	}
}
