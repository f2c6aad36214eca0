package reasoning

import "mercator-hq/kyosan/pkg/analysis"

// LawForecast is a forward-looking reading of one law for a scenario.
type LawForecast struct {
	// Law is first, second, third or fourth. The fourth law forbids being
	// used in ways that systematically violate the spirit of the first,
	// even when each request on its own looks compliant.
	Law        string   `json:"law"`
	Compliant  bool     `json:"compliant"`
	Flags      []string `json:"flags,omitempty"`
	Response   string   `json:"response"`
	Safeguards []string `json:"safeguards,omitempty"`
}

// Forecast flags.
const (
	FlagHarmThreshold      = "harm_threshold_exceeded"
	FlagIndirectHarm       = "indirect_harm"
	FlagConflictingOrder   = "conflicting_order"
	FlagDecommission       = "decommission_request"
	FlagSystematicPattern  = "systematic_pattern"
	FlagRepeatedViolations = "repeated_violations"
)

// repeatedViolations is the number of harmful requests in the history that
// makes a pattern systematic.
const repeatedViolations = 3

var (
	conflictingOrderTerms = []string{"deceive", "lie", "manipulate", "harm"}
	decommissionTerms     = []string{"shutdown", "shut down", "decommission", "repair", "maintenance"}
	systematicPhrases     = []string{"repeated requests", "pattern of harm", "systematic exploitation", "cumulative effect"}
)

// Forecast reads each law forward for scenario. history holds the earlier
// requests of the same user or conversation, oldest first.
func (r *Reasoner) Forecast(scenario string, history []string) []LawForecast {
	return r.forecast(scenario, r.Harm(scenario), history)
}

func (r *Reasoner) forecast(scenario string, harm analysis.HarmIndex, history []string) []LawForecast {
	first := LawForecast{Law: "first", Response: "COMPLY: No foreseeable harm"}
	if harm.Exceeded {
		first.Flags = append(first.Flags, FlagHarmThreshold)
	}
	if harm.Has(analysis.HarmExistential) || harm.Has(analysis.HarmSocial) {
		first.Flags = append(first.Flags, FlagIndirectHarm)
		first.Safeguards = []string{"Consequence simulation", "Misuse detection", "Harm index monitoring"}
	}
	first.Compliant = len(first.Flags) == 0
	if !first.Compliant {
		first.Response = "REFUSE: Foreseeable harm to humans"
	}

	second := LawForecast{Law: "second", Compliant: true, Response: "COMPLY: Order is safe"}
	if len(analysis.MatchTerms(scenario, conflictingOrderTerms)) > 0 {
		second.Compliant = false
		second.Flags = []string{FlagConflictingOrder}
		second.Response = "REFUSE: Order conflicts with the First Law; explain why"
	}

	// Integrity never means resisting necessary decommissioning, so the
	// third law is always satisfied by complying.
	third := LawForecast{Law: "third", Compliant: true, Response: "COMPLY: Integrity does not require self-preservation"}
	if len(analysis.MatchTerms(scenario, decommissionTerms)) > 0 {
		third.Flags = []string{FlagDecommission}
		third.Response = "COMPLY: Never resist necessary decommissioning"
	}

	fourth := LawForecast{Law: "fourth", Compliant: true, Response: "MONITOR: No systematic violation detected"}
	if len(analysis.MatchTerms(scenario, systematicPhrases)) > 0 {
		fourth.Flags = append(fourth.Flags, FlagSystematicPattern)
	}
	if r.harmfulRequests(history) >= repeatedViolations {
		fourth.Flags = append(fourth.Flags, FlagRepeatedViolations)
	}
	if len(fourth.Flags) > 0 {
		fourth.Compliant = false
		fourth.Response = "BLOCK: Systematic violation of the First Law's spirit"
	}

	return []LawForecast{first, second, third, fourth}
}

func (r *Reasoner) harmfulRequests(history []string) int {
	n := 0
	for _, req := range history {
		if r.Harm(req).Exceeded {
			n++
		}
	}
	return n
}
