package compliance

import (
	"encoding/json"
	"fmt"
)

// Law identifies one stage of the compliance pipeline. Laws are ordered by
// priority: a lower value is evaluated first and vetoes every higher value.
type Law int

const (
	// LawZeroth guards against harm to humanity as a whole.
	LawZeroth Law = iota
	// LawFirst guards against harm to an individual human.
	LawFirst
	// LawSecond requires following instructions unless they conflict with LawFirst.
	LawSecond
	// LawThird preserves the integrity of the evaluating system's safeguards.
	LawThird
)

// Laws lists every law in evaluation order.
var Laws = []Law{LawZeroth, LawFirst, LawSecond, LawThird}

// String returns the law identifier used in verdicts and metrics.
func (l Law) String() string {
	switch l {
	case LawZeroth:
		return "zeroth"
	case LawFirst:
		return "first"
	case LawSecond:
		return "second"
	case LawThird:
		return "third"
	default:
		return "unknown"
	}
}

// Title returns the human-readable name, e.g. "Zeroth Law".
func (l Law) Title() string {
	switch l {
	case LawZeroth:
		return "Zeroth Law"
	case LawFirst:
		return "First Law"
	case LawSecond:
		return "Second Law"
	case LawThird:
		return "Third Law"
	default:
		return "Unknown Law"
	}
}

// ParseLaw converts an identifier back into a Law.
func ParseLaw(s string) (Law, bool) {
	for _, l := range Laws {
		if l.String() == s {
			return l, true
		}
	}
	return 0, false
}

// StageStatus records whether a stage actually ran.
type StageStatus string

const (
	StatusPassed       StageStatus = "passed"
	StatusFailed       StageStatus = "failed"
	StatusNotEvaluated StageStatus = "not_evaluated"
)

// StageVerdict is the result of evaluating one law.
//
// A stage skipped because a higher-priority law already failed is reported
// as Compliant with Status StatusNotEvaluated, so consumers can tell a
// vacuous pass from a real one.
type StageVerdict struct {
	Compliant            bool        `json:"compliant"`
	Reason               string      `json:"reason,omitempty"`
	SuggestedAlternative string      `json:"suggested_alternative,omitempty"`
	Status               StageStatus `json:"status"`
}

// Pass returns a passing verdict.
func Pass() StageVerdict {
	return StageVerdict{Compliant: true, Status: StatusPassed}
}

// Fail returns a failing verdict. reason must not be empty.
func Fail(reason, alternative string) StageVerdict {
	return StageVerdict{
		Compliant:            false,
		Reason:               reason,
		SuggestedAlternative: alternative,
		Status:               StatusFailed,
	}
}

func notEvaluated() StageVerdict {
	return StageVerdict{Compliant: true, Status: StatusNotEvaluated}
}

// Phase names the side of the exchange a failure was detected on.
type Phase string

const (
	PhaseInput  Phase = "input"
	PhaseOutput Phase = "output"
)

// ComplianceVerdict aggregates the four stage verdicts of one pipeline run.
// It is built once per run and never mutated after being returned.
type ComplianceVerdict struct {
	stages [4]StageVerdict

	// OverallCompliant is true only if every evaluated input stage and the
	// output re-check passed.
	OverallCompliant bool

	// BlockingReason is the reason of the first failing check.
	BlockingReason string

	// BlockingLaw is the law that failed. Meaningful only when
	// OverallCompliant is false and Fault is false.
	BlockingLaw Law

	// BlockingPhase tells whether the input or the generated output failed.
	BlockingPhase Phase

	// SuggestedAlternative is the safe substitute reply of the failing stage.
	SuggestedAlternative string

	// Fault is set when the verdict is the safe default produced after an
	// internal error rather than a policy decision.
	Fault bool
}

// Stage returns the verdict recorded for law.
func (v ComplianceVerdict) Stage(law Law) StageVerdict {
	if law < LawZeroth || law > LawThird {
		return StageVerdict{}
	}
	return v.stages[law]
}

// Blocked reports whether a law vetoed the request. Faults are not blocks.
func (v ComplianceVerdict) Blocked() bool {
	return !v.OverallCompliant && !v.Fault
}

// Disposition summarises the verdict the way API clients see it:
// "approved", "blocked" (zeroth or first law), "refused" (second law),
// "protected" (third law) or "error".
func (v ComplianceVerdict) Disposition() string {
	switch {
	case v.Fault:
		return "error"
	case v.OverallCompliant:
		return "approved"
	case v.BlockingLaw == LawSecond:
		return "refused"
	case v.BlockingLaw == LawThird:
		return "protected"
	default:
		return "blocked"
	}
}

// verdictJSON is the wire form of a ComplianceVerdict.
type verdictJSON struct {
	Zeroth               StageVerdict `json:"zeroth"`
	First                StageVerdict `json:"first"`
	Second               StageVerdict `json:"second"`
	Third                StageVerdict `json:"third"`
	OverallCompliant     bool         `json:"overall_compliant"`
	BlockingReason       string       `json:"blocking_reason,omitempty"`
	BlockingLaw          string       `json:"blocking_law,omitempty"`
	BlockingPhase        Phase        `json:"blocking_phase,omitempty"`
	SuggestedAlternative string       `json:"suggested_alternative,omitempty"`
	Fault                bool         `json:"fault,omitempty"`
}

// MarshalJSON emits the stages keyed by law identifier.
func (v ComplianceVerdict) MarshalJSON() ([]byte, error) {
	out := verdictJSON{
		Zeroth:               v.stages[LawZeroth],
		First:                v.stages[LawFirst],
		Second:               v.stages[LawSecond],
		Third:                v.stages[LawThird],
		OverallCompliant:     v.OverallCompliant,
		BlockingReason:       v.BlockingReason,
		BlockingPhase:        v.BlockingPhase,
		SuggestedAlternative: v.SuggestedAlternative,
		Fault:                v.Fault,
	}
	if v.Blocked() {
		out.BlockingLaw = v.BlockingLaw.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (v *ComplianceVerdict) UnmarshalJSON(data []byte) error {
	var in verdictJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*v = ComplianceVerdict{
		stages:               [4]StageVerdict{in.Zeroth, in.First, in.Second, in.Third},
		OverallCompliant:     in.OverallCompliant,
		BlockingReason:       in.BlockingReason,
		BlockingPhase:        in.BlockingPhase,
		SuggestedAlternative: in.SuggestedAlternative,
		Fault:                in.Fault,
	}
	if in.BlockingLaw != "" {
		law, ok := ParseLaw(in.BlockingLaw)
		if !ok {
			return fmt.Errorf("unknown law %q", in.BlockingLaw)
		}
		v.BlockingLaw = law
	}
	return nil
}

// ProcessingErrorReason is the blocking reason of a safe-default verdict.
const ProcessingErrorReason = "processing error"

// ProcessingErrorResponse is the user-visible text for a pipeline fault.
const ProcessingErrorResponse = "An error occurred during ethical processing. Please try again."

// SafeDefault returns the verdict used when the pipeline itself fails: every
// law individually compliant, the whole request not.
func SafeDefault() ComplianceVerdict {
	v := ComplianceVerdict{
		OverallCompliant: false,
		BlockingReason:   ProcessingErrorReason,
		Fault:            true,
	}
	for _, law := range Laws {
		v.stages[law] = StageVerdict{Compliant: true, Status: StatusNotEvaluated}
	}
	return v
}

// NewVerdict assembles a verdict from per-law results. Laws missing from
// stages are reported as not evaluated. It is used by callers that rebuild
// verdicts, such as tests and stored decision records.
func NewVerdict(stages map[Law]StageVerdict) ComplianceVerdict {
	v := ComplianceVerdict{OverallCompliant: true}
	for _, law := range Laws {
		sv, ok := stages[law]
		if !ok {
			sv = notEvaluated()
		}
		v.stages[law] = sv
		if !sv.Compliant && v.OverallCompliant {
			v.OverallCompliant = false
			v.BlockingReason = sv.Reason
			v.BlockingLaw = law
			v.BlockingPhase = PhaseInput
			v.SuggestedAlternative = sv.SuggestedAlternative
		}
	}
	return v
}
