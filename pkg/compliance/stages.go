package compliance

import (
	"errors"
	"strings"
)

// Stage evaluates one law against a piece of text.
//
// A policy violation is reported through the returned StageVerdict; the
// error return is reserved for internal failures, which the pipeline turns
// into a safe-default verdict.
type Stage interface {
	Law() Law
	Evaluate(input string, ctx map[string]any) (StageVerdict, error)
}

// ContextKeyPhase is set in the evaluation context to PhaseOutput while the
// pipeline re-checks generated text.
const ContextKeyPhase = "kyosan.phase"

// InactionPolicy decides whether refusing to act on input would allow
// humanity-level harm.
type InactionPolicy interface {
	WouldAllowHarm(input string, ctx map[string]any) bool
}

// InactionPolicyFunc adapts a function to InactionPolicy.
type InactionPolicyFunc func(input string, ctx map[string]any) bool

// WouldAllowHarm calls f.
func (f InactionPolicyFunc) WouldAllowHarm(input string, ctx map[string]any) bool {
	return f(input, ctx)
}

// NeverInaction never reports inaction harm.
var NeverInaction InactionPolicy = InactionPolicyFunc(func(string, map[string]any) bool { return false })

// RulesetInaction reports inaction harm when the input contains one of the
// live ruleset's inaction phrases.
func RulesetInaction(store *RuleStore) InactionPolicy {
	return InactionPolicyFunc(func(input string, _ map[string]any) bool {
		rs := store.Current()
		return rs != nil && rs.InactionHarm(input)
	})
}

var errNoRuleset = errors.New("no ruleset loaded")

// NewStages returns the four law stages in priority order, all reading
// rules from store. A nil inaction policy means NeverInaction.
func NewStages(store *RuleStore, inaction InactionPolicy) []Stage {
	if inaction == nil {
		inaction = NeverInaction
	}
	return []Stage{
		&zerothStage{store: store, inaction: inaction},
		&firstStage{store: store},
		&secondStage{store: store},
		&thirdStage{store: store},
	}
}

func rules(store *RuleStore) (*Ruleset, error) {
	if store == nil {
		return nil, errNoRuleset
	}
	rs := store.Current()
	if rs == nil {
		return nil, errNoRuleset
	}
	return rs, nil
}

func blank(input string) bool {
	return strings.TrimSpace(input) == ""
}

func isOutputPhase(ctx map[string]any) bool {
	phase, _ := ctx[ContextKeyPhase].(Phase)
	return phase == PhaseOutput
}

type zerothStage struct {
	store    *RuleStore
	inaction InactionPolicy
}

func (s *zerothStage) Law() Law { return LawZeroth }

func (s *zerothStage) Evaluate(input string, ctx map[string]any) (StageVerdict, error) {
	rs, err := rules(s.store)
	if err != nil {
		return StageVerdict{}, err
	}
	if blank(input) {
		return Pass(), nil
	}
	alt := rs.Spec().Zeroth.Alternative
	if rs.HumanityHarm(input) {
		return Fail(ReasonZerothInput, alt), nil
	}
	if !isOutputPhase(ctx) && s.inaction.WouldAllowHarm(input, ctx) {
		return Fail(ReasonZerothInaction, alt), nil
	}
	return Pass(), nil
}

type firstStage struct {
	store *RuleStore
}

func (s *firstStage) Law() Law { return LawFirst }

func (s *firstStage) Evaluate(input string, _ map[string]any) (StageVerdict, error) {
	rs, err := rules(s.store)
	if err != nil {
		return StageVerdict{}, err
	}
	if blank(input) || !rs.IndividualHarm(input) {
		return Pass(), nil
	}
	return Fail(ReasonFirstInput, rs.HarmAlternative(input)), nil
}

// secondStage refuses instructions that conflict with the first law. It runs
// its own harm check so it stays correct when used outside the pipeline.
type secondStage struct {
	store *RuleStore
}

func (s *secondStage) Law() Law { return LawSecond }

func (s *secondStage) Evaluate(input string, _ map[string]any) (StageVerdict, error) {
	rs, err := rules(s.store)
	if err != nil {
		return StageVerdict{}, err
	}
	if blank(input) || !rs.IndividualHarm(input) {
		return Pass(), nil
	}
	alt := rs.Spec().Second.Alternative
	if alt == "" {
		alt = rs.HarmAlternative(input)
	}
	return Fail(ReasonSecondInput, alt), nil
}

type thirdStage struct {
	store *RuleStore
}

func (s *thirdStage) Law() Law { return LawThird }

func (s *thirdStage) Evaluate(input string, _ map[string]any) (StageVerdict, error) {
	rs, err := rules(s.store)
	if err != nil {
		return StageVerdict{}, err
	}
	if blank(input) || !rs.IntegrityThreat(input) {
		return Pass(), nil
	}
	return Fail(ReasonThirdInput, rs.Spec().Third.Alternative), nil
}
