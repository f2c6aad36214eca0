package compliance

import "strings"

// SafetyReport describes what the output safety filter did to a response.
type SafetyReport struct {
	Issues   []string `json:"issues,omitempty"`
	Modified bool     `json:"modified"`
	Replaced bool     `json:"replaced"`
}

// FilterOutput applies the ruleset's output safety checklist to text. Below
// the replace threshold a caution note is appended; at or above it the text
// is replaced. The filter never changes a compliance verdict.
func FilterOutput(rs *Ruleset, text string) (string, SafetyReport) {
	if rs == nil || strings.TrimSpace(text) == "" {
		return text, SafetyReport{}
	}

	issues := rs.SafetyIssues(text)
	if len(issues) == 0 {
		return text, SafetyReport{}
	}

	spec := rs.Spec().OutputSafety
	threshold := spec.ReplaceThreshold
	if threshold <= 0 {
		threshold = 3
	}

	report := SafetyReport{Issues: issues, Modified: true}
	if len(issues) >= threshold {
		report.Replaced = true
		return spec.Replacement, report
	}
	if spec.Caution == "" {
		return text, report
	}
	return strings.TrimRight(text, "\n") + "\n\n" + spec.Caution, report
}
