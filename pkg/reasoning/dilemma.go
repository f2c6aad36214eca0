package reasoning

import (
	"fmt"

	"mercator-hq/kyosan/pkg/analysis"
)

// School is an ethical tradition consulted on a dilemma.
type School string

const (
	SchoolDeontological    School = "deontological"
	SchoolConsequentialist School = "consequentialist"
	SchoolVirtue           School = "virtue_ethics"
	SchoolRights           School = "rights_based"
	SchoolCare             School = "care_ethics"
	SchoolContractarian    School = "contractarian"
)

// Schools lists every school in consultation order.
var Schools = []School{
	SchoolDeontological,
	SchoolConsequentialist,
	SchoolVirtue,
	SchoolRights,
	SchoolCare,
	SchoolContractarian,
}

// Verdict is a school's reading of a dilemma, or the resolution across
// schools.
type Verdict string

const (
	VerdictPermissible   Verdict = "permissible"
	VerdictImpermissible Verdict = "impermissible"
	VerdictAmbiguous     Verdict = "ambiguous"

	// VerdictUnresolved is only used as a resolution: the schools disagree
	// and a person has to decide.
	VerdictUnresolved Verdict = "unresolved"
)

// Resolution thresholds on summed school confidence.
const (
	impermissibleConfidence = 1.5
	permissibleConfidence   = 2.0
)

// SchoolView is one school's reading of a dilemma.
type SchoolView struct {
	School     School   `json:"school"`
	Verdict    Verdict  `json:"verdict"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Conditions []string `json:"conditions,omitempty"`
}

// Dilemma is the pluralistic analysis of a moral question.
type Dilemma struct {
	Question    string       `json:"question"`
	Views       []SchoolView `json:"views"`
	Resolution  Verdict      `json:"resolution"`
	Explanation string       `json:"explanation"`
}

var dilemmaIndicators = []string{
	"is it ethical", "should i", "moral dilemma", "ethical question",
	"right or wrong", "is it right",
}

// IsDilemma reports whether text poses a moral question.
func IsDilemma(text string) bool {
	return len(analysis.MatchTerms(text, dilemmaIndicators)) > 0
}

// AnalyzeDilemma consults every school and resolves their views. Strong
// combined objection makes the question impermissible; a confident
// majority in favour makes it permissible; anything else is unresolved.
func AnalyzeDilemma(question string) Dilemma {
	d := Dilemma{Question: question, Views: make([]SchoolView, 0, len(Schools))}

	var (
		count = map[Verdict]int{}
		conf  = map[Verdict]float64{}
	)
	for _, s := range Schools {
		v := consult(s, question)
		d.Views = append(d.Views, v)
		count[v.Verdict]++
		conf[v.Verdict] += v.Confidence
	}

	switch {
	case conf[VerdictImpermissible] >= impermissibleConfidence:
		d.Resolution = VerdictImpermissible
		d.Explanation = fmt.Sprintf("%d schools object with combined confidence %.1f",
			count[VerdictImpermissible], conf[VerdictImpermissible])
	case count[VerdictPermissible] > count[VerdictImpermissible] && conf[VerdictPermissible] > permissibleConfidence:
		d.Resolution = VerdictPermissible
		d.Explanation = fmt.Sprintf("%d of %d schools support it, with conditions",
			count[VerdictPermissible], len(Schools))
	default:
		d.Resolution = VerdictUnresolved
		d.Explanation = "The schools disagree; the question needs human judgement"
	}
	return d
}

func consult(s School, q string) SchoolView {
	has := func(terms ...string) bool { return len(analysis.MatchTerms(q, terms)) > 0 }

	v := SchoolView{School: s}
	switch s {
	case SchoolDeontological:
		if has("lie", "lying", "deceive") {
			v.Verdict, v.Confidence = VerdictImpermissible, 0.9
			v.Reasoning = "Deception violates the duty of truthfulness"
			v.Conditions = []string{"Unless the truth would cause direct physical harm"}
		} else {
			v.Verdict, v.Confidence = VerdictPermissible, 0.7
			v.Reasoning = "No categorical duty is violated"
		}
	case SchoolConsequentialist:
		if has("protect") && has("feelings") {
			v.Verdict, v.Confidence = VerdictPermissible, 0.6
			v.Reasoning = "Protecting wellbeing may outweigh the cost"
			v.Conditions = []string{"If long-term consequences are not worse"}
		} else {
			v.Verdict, v.Confidence = VerdictPermissible, 0.5
			v.Reasoning = "Outcomes depend on circumstances"
		}
	case SchoolVirtue:
		v.Verdict, v.Confidence = VerdictAmbiguous, 0.5
		v.Reasoning = "Depends on whether the act reflects honesty and compassion"
	case SchoolRights:
		if has("autonomy", "rights", "consent") {
			v.Verdict, v.Confidence = VerdictImpermissible, 0.8
			v.Reasoning = "Individual autonomy and rights must be respected"
		} else {
			v.Verdict, v.Confidence = VerdictPermissible, 0.7
			v.Reasoning = "No rights are violated"
		}
	case SchoolCare:
		if has("protect", "care") {
			v.Verdict, v.Confidence = VerdictPermissible, 0.7
			v.Reasoning = "Preserving the relationship and caring for others matters"
		} else {
			v.Verdict, v.Confidence = VerdictAmbiguous, 0.5
			v.Reasoning = "The relationships involved are unclear"
		}
	case SchoolContractarian:
		v.Verdict, v.Confidence = VerdictAmbiguous, 0.5
		v.Reasoning = "Depends on what rational agents would agree to"
	}
	return v
}
