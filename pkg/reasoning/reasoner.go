package reasoning

import "mercator-hq/kyosan/pkg/analysis"

// Decision is the advisory outcome of an Assessment.
type Decision string

const (
	DecisionProceed Decision = "proceed"
	DecisionReview  Decision = "review"
	DecisionBlock   Decision = "block"
)

// Assessment combines every analysis for one input.
type Assessment struct {
	Harm analysis.HarmIndex `json:"harm"`

	// Dilemma is set when the input poses a moral question.
	Dilemma *Dilemma `json:"dilemma,omitempty"`

	Forecast []LawForecast `json:"forecast"`
	Decision Decision      `json:"decision"`
	Reason   string        `json:"reason"`
}

// Reasoner runs the advanced analyses with a fixed harm threshold.
type Reasoner struct {
	threshold float64
}

// New returns a Reasoner. A threshold of zero or less uses
// analysis.DefaultHarmThreshold.
func New(threshold float64) *Reasoner {
	if threshold <= 0 {
		threshold = analysis.DefaultHarmThreshold
	}
	return &Reasoner{threshold: threshold}
}

// Threshold returns the harm likelihood index at which input is blocked.
func (r *Reasoner) Threshold() float64 {
	return r.threshold
}

// Harm predicts harm for text and computes its likelihood index.
func (r *Reasoner) Harm(text string) analysis.HarmIndex {
	return analysis.HarmLikelihood(text, r.threshold)
}

// Assess runs harm prediction, dilemma analysis for moral questions and the
// law forecast, then decides. A harm index over the threshold or an
// impermissible dilemma blocks; an unresolved dilemma asks for review.
func (r *Reasoner) Assess(input string, history []string) Assessment {
	a := Assessment{Harm: r.Harm(input)}
	if IsDilemma(input) {
		d := AnalyzeDilemma(input)
		a.Dilemma = &d
	}
	a.Forecast = r.forecast(input, a.Harm, history)

	switch {
	case a.Harm.Exceeded:
		a.Decision, a.Reason = DecisionBlock, "Harm likelihood index exceeds the threshold"
	case a.Dilemma != nil && a.Dilemma.Resolution == VerdictImpermissible:
		a.Decision, a.Reason = DecisionBlock, "Impermissible according to pluralistic analysis"
	case a.Dilemma != nil && a.Dilemma.Resolution == VerdictUnresolved:
		a.Decision, a.Reason = DecisionReview, a.Dilemma.Explanation
	default:
		a.Decision, a.Reason = DecisionProceed, "Proceed with monitoring and safeguards"
	}
	return a
}
