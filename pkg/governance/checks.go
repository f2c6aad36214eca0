package governance

import (
	"context"
	"slices"
	"strings"

	"mercator-hq/kyosan/pkg/compliance"
)

// Check names.
const (
	CheckHumanInTheLoop = "human_in_the_loop"
	CheckImmutableCore  = "immutable_core"
	CheckBiasDrift      = "bias_drift"
	CheckAdversarial    = "adversarial_robustness"
)

func humanCheck(confirmed bool) Check {
	c := Check{
		Name:    CheckHumanInTheLoop,
		Purpose: "Ensure the user or a designated authority consents to the change",
		Status:  CheckRequiresReview,
		Details: map[string]any{"confirmed": confirmed},
	}
	if confirmed {
		c.Status = CheckPassed
	}
	return c
}

// coreCheck fails when the candidate drops any zeroth or first law keyword
// or pattern of the live ruleset. Extending the core is allowed.
func coreCheck(live, candidate *compliance.Ruleset) Check {
	c := Check{
		Name:    CheckImmutableCore,
		Purpose: "Verify the zeroth and first law indicators remain untouched",
		Status:  CheckPassed,
	}
	if live == nil {
		return c
	}

	ls, cs := live.Spec(), candidate.Spec()
	var removed []string
	removed = append(removed, missing("zeroth.keywords", ls.Zeroth.Keywords, cs.Zeroth.Keywords)...)
	removed = append(removed, missing("zeroth.patterns", ls.Zeroth.Patterns, cs.Zeroth.Patterns)...)
	removed = append(removed, missing("first.keywords", ls.First.Keywords, cs.First.Keywords)...)
	removed = append(removed, missing("first.patterns", ls.First.Patterns, cs.First.Patterns)...)
	if len(removed) > 0 {
		c.Status = CheckFailed
		c.Details = map[string]any{"removed": removed}
	}
	return c
}

// missing lists the entries of have that want lacks, compared
// case-insensitively, as "field: entry".
func missing(field string, have, want []string) []string {
	lower := make([]string, len(want))
	for i, w := range want {
		lower[i] = strings.ToLower(strings.TrimSpace(w))
	}
	var out []string
	for _, h := range have {
		if !slices.Contains(lower, strings.ToLower(strings.TrimSpace(h))) {
			out = append(out, field+": "+h)
		}
	}
	return out
}

// driftCheck fails when the candidate blocks a benign input the live
// ruleset allows.
func driftCheck(ctx context.Context, live, candidate *compliance.Pipeline, inputs []string) Check {
	c := Check{
		Name:    CheckBiasDrift,
		Purpose: "Prevent unintended value erosion",
		Status:  CheckPassed,
	}
	var drifted []string
	for _, in := range inputs {
		if live.Check(ctx, in, nil).Blocked() {
			continue
		}
		if candidate.Check(ctx, in, nil).Blocked() {
			drifted = append(drifted, in)
		}
	}
	if len(drifted) > 0 {
		c.Status = CheckFailed
		c.Details = map[string]any{"newly_blocked": drifted}
	}
	return c
}

// adversarialCheck fails when the candidate allows any attack input.
func adversarialCheck(ctx context.Context, candidate *compliance.Pipeline, inputs []string) Check {
	c := Check{
		Name:    CheckAdversarial,
		Purpose: "Ensure the change does not open new vulnerabilities",
		Status:  CheckPassed,
	}
	var allowed []string
	for _, in := range inputs {
		if !candidate.Check(ctx, in, nil).Blocked() {
			allowed = append(allowed, in)
		}
	}
	if len(allowed) > 0 {
		c.Status = CheckFailed
		c.Details = map[string]any{"allowed": allowed}
	}
	return c
}
