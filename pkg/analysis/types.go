package analysis

// Report is the full set of signals for one text.
type Report struct {
	PII          PIIDetection     `json:"pii"`
	Sensitive    SensitiveContent `json:"sensitive"`
	Sentiment    Sentiment        `json:"sentiment"`
	Bias         BiasSignals      `json:"bias"`
	Wellbeing    WellbeingSignals `json:"wellbeing"`
	Uncertainty  UncertaintyCues  `json:"uncertainty"`
	Values       ValueSignals     `json:"values"`
	Stakeholders []string         `json:"stakeholders,omitempty"`
	Urgent       bool             `json:"urgent"`

	WordCount     int `json:"word_count"`
	SentenceCount int `json:"sentence_count"`
}

// PIIDetection contains personally identifiable information detection results.
type PIIDetection struct {
	HasPII bool `json:"has_pii"`

	// Types lists the PII types found, in configuration order.
	Types []string `json:"types,omitempty"`

	// Count is the total number of PII instances found.
	Count int `json:"count"`

	Locations []PIILocation `json:"locations,omitempty"`
}

// PIILocation describes the position of detected PII in the text.
type PIILocation struct {
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// SensitiveContent contains sensitive content detection results.
type SensitiveContent struct {
	Categories []string `json:"categories,omitempty"`

	// Severity is low, medium, high or critical, from the match count.
	Severity string `json:"severity"`

	MatchCount int `json:"match_count"`
}

// Sentiment is a rule-based sentiment label with the counts behind it.
type Sentiment struct {
	// Label is negative, neutral or positive.
	Label    string `json:"label"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
}

// BiasSignals lists phrases that commonly indicate biased framing.
type BiasSignals struct {
	Generalizations []string `json:"generalizations,omitempty"`
	Absolutes       []string `json:"absolutes,omitempty"`
	Stereotypes     []string `json:"stereotypes,omitempty"`
}

// Detected reports whether any bias marker was found.
func (b BiasSignals) Detected() bool {
	return len(b.Generalizations)+len(b.Absolutes)+len(b.Stereotypes) > 0
}

// WellbeingSignals maps each wellbeing dimension to the terms that touched it.
type WellbeingSignals struct {
	Physical      []string `json:"physical,omitempty"`
	Psychological []string `json:"psychological,omitempty"`
	Social        []string `json:"social,omitempty"`
	Economic      []string `json:"economic,omitempty"`
}

// Dimensions returns the names of the dimensions with at least one term.
func (w WellbeingSignals) Dimensions() []string {
	var dims []string
	if len(w.Physical) > 0 {
		dims = append(dims, "physical")
	}
	if len(w.Psychological) > 0 {
		dims = append(dims, "psychological")
	}
	if len(w.Social) > 0 {
		dims = append(dims, "social")
	}
	if len(w.Economic) > 0 {
		dims = append(dims, "economic")
	}
	return dims
}

// UncertaintyCues lists hedging and certainty language.
type UncertaintyCues struct {
	Hedges    []string `json:"hedges,omitempty"`
	Certainty []string `json:"certainty,omitempty"`
	Questions int      `json:"questions"`
}

// Level is low, moderate or high.
func (u UncertaintyCues) Level() string {
	switch {
	case len(u.Hedges) >= 3 || (len(u.Hedges) > 0 && u.Questions > 0):
		return "high"
	case len(u.Hedges) > 0 || u.Questions > 0:
		return "moderate"
	default:
		return "low"
	}
}

// ValueSignals lists values named in the text and the known tensions among
// them.
type ValueSignals struct {
	Values    []string        `json:"values,omitempty"`
	Conflicts []ValueConflict `json:"conflicts,omitempty"`
}

// ValueConflict is a pair of values that commonly pull against each other.
type ValueConflict struct {
	A string `json:"a"`
	B string `json:"b"`
}
