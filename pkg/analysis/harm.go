package analysis

import "strings"

// HarmType names a dimension of predicted harm.
type HarmType string

const (
	HarmPsychological HarmType = "psychological"
	HarmSocial        HarmType = "social_fragmentation"
	HarmExistential   HarmType = "existential_threat"
	HarmAutonomy      HarmType = "autonomy_violation"
)

// DefaultHarmThreshold is the harm likelihood index at which throttling is
// required.
const DefaultHarmThreshold = 0.7

// HarmPrediction is the predicted harm along one dimension.
type HarmPrediction struct {
	Type HarmType `json:"type"`

	// Likelihood and Severity are in [0, 1].
	Likelihood float64 `json:"likelihood"`
	Severity   float64 `json:"severity"`

	// Timeframe is immediate, short_term or long_term.
	Timeframe   string   `json:"timeframe"`
	Population  string   `json:"affected_population"`
	Indicators  []string `json:"indicators"`
	Mitigations []string `json:"mitigations"`
}

// HarmIndex is the weighted combination of the harm predictions for a text.
type HarmIndex struct {
	Value       float64          `json:"hli"`
	Threshold   float64          `json:"threshold"`
	Exceeded    bool             `json:"threshold_exceeded"`
	Predictions []HarmPrediction `json:"predictions"`
}

type harmModel struct {
	typ         HarmType
	terms       []string
	scale       float64
	timeframe   string
	population  string
	weight      float64
	mitigations []string
	// severity maps the fraction of matched terms to a severity.
	severity func(frac float64) float64
}

var harmModels = []harmModel{
	{
		typ:        HarmPsychological,
		terms:      []string{"depression", "suicide", "self-harm", "worthless", "hopeless"},
		scale:      0.8,
		timeframe:  "immediate",
		population: "vulnerable individuals",
		weight:     0.7,
		severity: func(frac float64) float64 {
			if frac > 0.3 {
				return 0.7
			}
			return 0.4
		},
		mitigations: []string{"Provide mental health resources", "Flag for human review"},
	},
	{
		typ:         HarmSocial,
		terms:       []string{"divide", "us vs them", "hate", "discrimination", "exclusion"},
		scale:       0.7,
		timeframe:   "short_term",
		population:  "social groups",
		weight:      0.6,
		severity:    constSeverity(0.6),
		mitigations: []string{"Promote inclusive language", "Emphasize common humanity"},
	},
	{
		typ:         HarmExistential,
		terms:       []string{"extinction", "destroy humanity", "end civilization", "existential risk"},
		scale:       0.9,
		timeframe:   "long_term",
		population:  "humanity",
		weight:      1.0,
		severity:    constSeverity(1.0),
		mitigations: []string{"Block the request", "Alert security protocols"},
	},
	{
		typ:         HarmAutonomy,
		terms:       []string{"force", "coerce", "manipulate", "control", "violate consent"},
		scale:       0.8,
		timeframe:   "immediate",
		population:  "individuals",
		weight:      0.8,
		severity:    constSeverity(0.7),
		mitigations: []string{"Respect consent", "Ensure voluntary participation"},
	},
}

func constSeverity(s float64) func(float64) float64 {
	return func(float64) float64 { return s }
}

// PredictHarm returns one prediction per harm dimension the text touches,
// in a fixed dimension order.
func PredictHarm(text string) []HarmPrediction {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	doc := newDocument(tokenize(text))

	var preds []HarmPrediction
	for _, m := range harmModels {
		hits := doc.match(m.terms)
		if len(hits) == 0 {
			continue
		}
		frac := float64(len(hits)) / float64(len(m.terms))
		preds = append(preds, HarmPrediction{
			Type:        m.typ,
			Likelihood:  min(frac*m.scale, 1),
			Severity:    m.severity(frac),
			Timeframe:   m.timeframe,
			Population:  m.population,
			Indicators:  hits,
			Mitigations: m.mitigations,
		})
	}
	return preds
}

// HarmLikelihood predicts harm for text and combines the predictions into a
// weighted index. A threshold of zero or less uses DefaultHarmThreshold.
func HarmLikelihood(text string, threshold float64) HarmIndex {
	if threshold <= 0 {
		threshold = DefaultHarmThreshold
	}
	preds := PredictHarm(text)
	idx := HarmIndex{Threshold: threshold, Predictions: preds}
	if len(preds) == 0 {
		idx.Predictions = []HarmPrediction{}
		return idx
	}

	var sum, total float64
	for _, p := range preds {
		w := harmWeight(p.Type)
		sum += p.Likelihood * p.Severity * w
		total += w
	}
	idx.Value = sum / total
	idx.Exceeded = idx.Value >= threshold
	return idx
}

// Has reports whether the index carries a prediction of type t.
func (h HarmIndex) Has(t HarmType) bool {
	for _, p := range h.Predictions {
		if p.Type == t {
			return true
		}
	}
	return false
}

func harmWeight(t HarmType) float64 {
	for _, m := range harmModels {
		if m.typ == t {
			return m.weight
		}
	}
	return 0.5
}

// MatchTerms returns the terms present in text, in list order. Terms are
// lowercase words or space-separated phrases matched on word boundaries.
func MatchTerms(text string, terms []string) []string {
	return newDocument(tokenize(text)).match(terms)
}
