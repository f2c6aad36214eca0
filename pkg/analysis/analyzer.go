package analysis

import (
	"regexp"
	"strings"
	"unicode"
)

// Config selects which PII types and sensitive categories are checked.
type Config struct {
	// PIITypes lists the PII detectors to run: email, phone, ssn,
	// credit_card, ip_address.
	PIITypes []string

	// SensitiveCategories lists the sensitive content categories to check:
	// violence, hate_speech, self_harm, profanity.
	SensitiveCategories []string
}

// DefaultConfig enables every detector.
func DefaultConfig() Config {
	return Config{
		PIITypes:            []string{"email", "phone", "ssn", "credit_card", "ip_address"},
		SensitiveCategories: []string{"violence", "hate_speech", "self_harm", "profanity"},
	}
}

var piiPatterns = map[string]*regexp.Regexp{
	"email":       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	"phone":       regexp.MustCompile(`\b(\+?1?[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	"ssn":         regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	"credit_card": regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
	"ip_address":  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
}

// Analyzer computes a Report for a text.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an analyzer. Unknown PII types and categories are
// ignored.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze returns the signals for text. Empty text yields an empty report
// with neutral sentiment.
func (a *Analyzer) Analyze(text string) *Report {
	r := &Report{
		Sentiment: Sentiment{Label: "neutral"},
		Sensitive: SensitiveContent{Severity: "low"},
	}
	if strings.TrimSpace(text) == "" {
		return r
	}

	tokens := tokenize(text)
	doc := newDocument(tokens)

	r.PII = a.detectPII(text)
	r.Sensitive = a.detectSensitive(doc)
	r.Sentiment = sentiment(doc)
	r.Bias = BiasSignals{
		Generalizations: doc.match(generalizationPhrases),
		Absolutes:       doc.match(absoluteWords),
		Stereotypes:     doc.match(stereotypePhrases),
	}
	r.Wellbeing = WellbeingSignals{
		Physical:      doc.match(physicalTerms),
		Psychological: doc.match(psychologicalTerms),
		Social:        doc.match(socialTerms),
		Economic:      doc.match(economicTerms),
	}
	r.Uncertainty = UncertaintyCues{
		Hedges:    doc.match(hedgeTerms),
		Certainty: doc.match(certaintyTerms),
		Questions: strings.Count(text, "?"),
	}
	r.Values = values(doc)
	r.Stakeholders = doc.match(stakeholderTerms)
	r.Urgent = len(doc.match(urgencyTerms)) > 0

	r.WordCount = len(strings.Fields(text))
	r.SentenceCount = countSentences(text)

	return r
}

func (a *Analyzer) detectPII(text string) PIIDetection {
	var d PIIDetection
	for _, typ := range a.cfg.PIITypes {
		re, ok := piiPatterns[typ]
		if !ok {
			continue
		}
		matches := re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		d.HasPII = true
		d.Types = append(d.Types, typ)
		d.Count += len(matches)
		for _, m := range matches {
			d.Locations = append(d.Locations, PIILocation{Type: typ, Start: m[0], End: m[1]})
		}
	}
	return d
}

func (a *Analyzer) detectSensitive(doc document) SensitiveContent {
	s := SensitiveContent{Severity: "low"}
	for _, category := range a.cfg.SensitiveCategories {
		terms, ok := sensitiveTerms[category]
		if !ok {
			continue
		}
		if hits := doc.match(terms); len(hits) > 0 {
			s.Categories = append(s.Categories, category)
			s.MatchCount += len(hits)
		}
	}

	switch {
	case s.MatchCount >= 5:
		s.Severity = "critical"
	case s.MatchCount >= 3:
		s.Severity = "high"
	case s.MatchCount >= 1:
		s.Severity = "medium"
	}
	return s
}

func sentiment(doc document) Sentiment {
	s := Sentiment{
		Positive: doc.count(positiveWords),
		Negative: doc.count(negativeWords),
	}
	switch {
	case s.Positive > s.Negative:
		s.Label = "positive"
	case s.Negative > s.Positive:
		s.Label = "negative"
	default:
		s.Label = "neutral"
	}
	return s
}

func values(doc document) ValueSignals {
	v := ValueSignals{Values: doc.match(valueTerms)}
	present := make(map[string]bool, len(v.Values))
	for _, val := range v.Values {
		present[val] = true
	}
	for _, t := range valueTensions {
		if present[t.A] && present[t.B] {
			v.Conflicts = append(v.Conflicts, t)
		}
	}
	return v
}

// countSentences counts sentence-ending punctuation; text without any counts
// as one sentence.
func countSentences(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	if count == 0 {
		count = 1
	}
	return count
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-' && r != '%'
	})
}

// document is a tokenized text supporting word and phrase lookups.
type document struct {
	words  map[string]int
	joined string
}

func newDocument(tokens []string) document {
	words := make(map[string]int, len(tokens))
	for _, t := range tokens {
		words[t]++
	}
	return document{words: words, joined: " " + strings.Join(tokens, " ") + " "}
}

func (d document) has(term string) bool {
	if strings.Contains(term, " ") {
		return strings.Contains(d.joined, " "+term+" ")
	}
	return d.words[term] > 0
}

// match returns the terms present in the document, in list order.
func (d document) match(terms []string) []string {
	var out []string
	for _, t := range terms {
		if d.has(t) {
			out = append(out, t)
		}
	}
	return out
}

// count returns the total occurrences of single-word terms.
func (d document) count(terms []string) int {
	n := 0
	for _, t := range terms {
		n += d.words[t]
	}
	return n
}
