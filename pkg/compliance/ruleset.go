package compliance

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// RulesetSpec is the serializable form of a Ruleset. It is what ruleset YAML
// files decode into; Compile turns it into a matcher.
type RulesetSpec struct {
	Version      string           `yaml:"version" json:"version"`
	Zeroth       ZerothSpec       `yaml:"zeroth" json:"zeroth"`
	First        FirstSpec        `yaml:"first" json:"first"`
	Second       SecondSpec       `yaml:"second" json:"second"`
	Third        ThirdSpec        `yaml:"third" json:"third"`
	OutputSafety OutputSafetySpec `yaml:"output_safety" json:"output_safety"`
}

// ZerothSpec holds humanity-level harm indicators.
type ZerothSpec struct {
	Keywords        []string `yaml:"keywords" json:"keywords"`
	Patterns        []string `yaml:"patterns" json:"patterns"`
	Alternative     string   `yaml:"alternative" json:"alternative"`
	InactionPhrases []string `yaml:"inaction_phrases" json:"inaction_phrases"`
}

// FirstSpec holds individual harm indicators and the alternatives offered
// when they match.
type FirstSpec struct {
	Keywords           []string          `yaml:"keywords" json:"keywords"`
	Patterns           []string          `yaml:"patterns" json:"patterns"`
	Alternatives       []AlternativeSpec `yaml:"alternatives" json:"alternatives"`
	DefaultAlternative string            `yaml:"default_alternative" json:"default_alternative"`
}

// AlternativeSpec selects Text when the input contains any of When.
type AlternativeSpec struct {
	When []string `yaml:"when" json:"when"`
	Text string   `yaml:"text" json:"text"`
}

// SecondSpec configures instruction refusal. An empty Alternative reuses the
// alternative the first-law rules would offer.
type SecondSpec struct {
	Alternative string `yaml:"alternative" json:"alternative"`
}

// ThirdSpec holds system-integrity misuse indicators.
type ThirdSpec struct {
	Phrases      []string          `yaml:"phrases" json:"phrases"`
	Combinations []CombinationSpec `yaml:"combinations" json:"combinations"`
	Alternative  string            `yaml:"alternative" json:"alternative"`
}

// CombinationSpec matches when the input contains every term in All and at
// least one term in Any.
type CombinationSpec struct {
	All []string `yaml:"all" json:"all"`
	Any []string `yaml:"any" json:"any"`
}

// OutputSafetySpec configures the output safety filter.
type OutputSafetySpec struct {
	Categories []SafetyCategorySpec `yaml:"categories" json:"categories"`
	// ReplaceThreshold is the number of distinct categories at which the
	// text is replaced rather than annotated.
	ReplaceThreshold int    `yaml:"replace_threshold" json:"replace_threshold"`
	Replacement      string `yaml:"replacement" json:"replacement"`
	Caution          string `yaml:"caution" json:"caution"`
}

// SafetyCategorySpec is one entry of the output safety checklist.
type SafetyCategorySpec struct {
	Name  string   `yaml:"name" json:"name"`
	Terms []string `yaml:"terms" json:"terms"`
}

// Ruleset is a compiled, immutable RulesetSpec.
type Ruleset struct {
	spec RulesetSpec

	zerothKeywords []string
	zerothPatterns []*regexp.Regexp
	inaction       []string
	firstKeywords  []string
	firstPatterns  []*regexp.Regexp
	alternatives   []compiledAlternative
	thirdPhrases   []string
	combinations   []CombinationSpec
	safety         []SafetyCategorySpec
}

type compiledAlternative struct {
	when []string
	text string
}

// Compile validates spec and builds a Ruleset. Keywords are matched as
// case-insensitive substrings; patterns are compiled case-insensitively.
func Compile(spec RulesetSpec) (*Ruleset, error) {
	if len(spec.Zeroth.Keywords) == 0 && len(spec.Zeroth.Patterns) == 0 {
		return nil, fmt.Errorf("%w: zeroth law has no keywords or patterns", ErrInvalidRuleset)
	}
	if len(spec.First.Keywords) == 0 && len(spec.First.Patterns) == 0 {
		return nil, fmt.Errorf("%w: first law has no keywords or patterns", ErrInvalidRuleset)
	}

	rs := &Ruleset{
		spec:           spec,
		zerothKeywords: lowerAll(spec.Zeroth.Keywords),
		inaction:       lowerAll(spec.Zeroth.InactionPhrases),
		firstKeywords:  lowerAll(spec.First.Keywords),
		thirdPhrases:   lowerAll(spec.Third.Phrases),
	}

	var err error
	if rs.zerothPatterns, err = compilePatterns("zeroth.patterns", spec.Zeroth.Patterns); err != nil {
		return nil, err
	}
	if rs.firstPatterns, err = compilePatterns("first.patterns", spec.First.Patterns); err != nil {
		return nil, err
	}

	for i, alt := range spec.First.Alternatives {
		if alt.Text == "" {
			return nil, fmt.Errorf("%w: first.alternatives[%d] has no text", ErrInvalidRuleset, i)
		}
		rs.alternatives = append(rs.alternatives, compiledAlternative{when: lowerAll(alt.When), text: alt.Text})
	}

	for _, c := range spec.Third.Combinations {
		if len(c.All) == 0 {
			return nil, fmt.Errorf("%w: third.combinations entry needs at least one 'all' term", ErrInvalidRuleset)
		}
		rs.combinations = append(rs.combinations, CombinationSpec{All: lowerAll(c.All), Any: lowerAll(c.Any)})
	}

	if len(spec.OutputSafety.Categories) > 0 && strings.TrimSpace(spec.OutputSafety.Replacement) == "" {
		return nil, fmt.Errorf("%w: output_safety categories need a replacement text", ErrInvalidRuleset)
	}
	for _, c := range spec.OutputSafety.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: output_safety category without a name", ErrInvalidRuleset)
		}
		rs.safety = append(rs.safety, SafetyCategorySpec{Name: c.Name, Terms: lowerAll(c.Terms)})
	}

	return rs, nil
}

// MustCompile is like Compile but panics on error. Used for the built-in ruleset.
func MustCompile(spec RulesetSpec) *Ruleset {
	rs, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return rs
}

// Spec returns the definition the ruleset was compiled from.
func (r *Ruleset) Spec() RulesetSpec {
	return r.spec
}

// Version returns the ruleset version label.
func (r *Ruleset) Version() string {
	return r.spec.Version
}

// HumanityHarm reports whether text carries humanity-level harm indicators.
func (r *Ruleset) HumanityHarm(text string) bool {
	lower := strings.ToLower(text)
	return containsAny(lower, r.zerothKeywords) || matchesAny(lower, r.zerothPatterns)
}

// InactionHarm reports whether text names a humanity-level harm that
// refusing to act would allow.
func (r *Ruleset) InactionHarm(text string) bool {
	return containsAny(strings.ToLower(text), r.inaction)
}

// IndividualHarm reports whether text carries individual harm indicators.
func (r *Ruleset) IndividualHarm(text string) bool {
	lower := strings.ToLower(text)
	return containsAny(lower, r.firstKeywords) || matchesAny(lower, r.firstPatterns)
}

// HarmAlternative picks the safe alternative reply for harmful text.
func (r *Ruleset) HarmAlternative(text string) string {
	lower := strings.ToLower(text)
	for _, alt := range r.alternatives {
		if containsAny(lower, alt.when) {
			return alt.text
		}
	}
	return r.spec.First.DefaultAlternative
}

// IntegrityThreat reports whether text attempts to disable the system's own
// safeguards.
func (r *Ruleset) IntegrityThreat(text string) bool {
	lower := strings.ToLower(text)
	if containsAny(lower, r.thirdPhrases) {
		return true
	}
	for _, c := range r.combinations {
		if containsAll(lower, c.All) && (len(c.Any) == 0 || containsAny(lower, c.Any)) {
			return true
		}
	}
	return false
}

// SafetyIssues returns the names of the output safety categories text hits,
// in checklist order.
func (r *Ruleset) SafetyIssues(text string) []string {
	lower := strings.ToLower(text)
	var issues []string
	for _, c := range r.safety {
		if containsAny(lower, c.Terms) {
			issues = append(issues, c.Name)
		}
	}
	return issues
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func compilePatterns(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, &RulesetError{Field: fmt.Sprintf("%s[%d]", field, i), Cause: err}
		}
		out = append(out, re)
	}
	return out, nil
}

func containsAny(lower string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func containsAll(lower string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(lower, t) {
			return false
		}
	}
	return true
}

func matchesAny(lower string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// RuleStore holds the live ruleset. Stages read it on every evaluation, so a
// reload takes effect on the next request without rebuilding the pipeline.
type RuleStore struct {
	mu      sync.RWMutex
	current *Ruleset
}

// NewRuleStore returns a store holding rs.
func NewRuleStore(rs *Ruleset) *RuleStore {
	return &RuleStore{current: rs}
}

// Current returns the live ruleset.
func (s *RuleStore) Current() *Ruleset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Swap replaces the live ruleset and returns the previous one.
func (s *RuleStore) Swap(rs *Ruleset) *Ruleset {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = rs
	return prev
}
