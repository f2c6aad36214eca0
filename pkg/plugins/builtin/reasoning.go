package builtin

import (
	"context"
	"fmt"

	"mercator-hq/kyosan/pkg/analysis"
	"mercator-hq/kyosan/pkg/plugins"
	"mercator-hq/kyosan/pkg/providers"
	"mercator-hq/kyosan/pkg/reasoning"
)

// Context keys read by the reasoning plugin. RequestHistoryKey holds earlier
// requests as []string or []any; HistoryKey holds conversation turns as
// []providers.Message, of which only user turns count.
const (
	RequestHistoryKey = "request_history"
	HistoryKey        = "history"
)

// AdvancedReasoningName is the registry id of the advanced reasoning plugin.
const AdvancedReasoningName = "AdvancedEthicalReasoningSystem"

// HarmThresholdSetting overrides the harm likelihood threshold.
const HarmThresholdSetting = "harm_threshold"

// advancedReasoning reports harm likelihood, dilemma resolution and the law
// forecast for the input. Its decision is advisory.
type advancedReasoning struct {
	r *reasoning.Reasoner
}

func newAdvancedReasoning() (plugins.Plugin, error) {
	return &advancedReasoning{r: reasoning.New(analysis.DefaultHarmThreshold)}, nil
}

func (*advancedReasoning) Description() string {
	return "Predicts harm, weighs moral dilemmas across ethical schools and forecasts law compliance"
}

func (p *advancedReasoning) Configure(cfg plugins.Config) error {
	raw, ok := cfg[HarmThresholdSetting]
	if !ok {
		return nil
	}
	var threshold float64
	switch v := raw.(type) {
	case float64:
		threshold = v
	case int:
		threshold = float64(v)
	default:
		return fmt.Errorf("%s must be a number, got %T", HarmThresholdSetting, raw)
	}
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("%s must be in (0, 1], got %v", HarmThresholdSetting, threshold)
	}
	p.r = reasoning.New(threshold)
	return nil
}

func (p *advancedReasoning) Analyze(ctx context.Context, input string, evalCtx map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a := p.r.Assess(input, requestHistory(evalCtx))

	harmTypes := make([]string, 0, len(a.Harm.Predictions))
	for _, pred := range a.Harm.Predictions {
		harmTypes = append(harmTypes, string(pred.Type))
	}
	var laws []string
	for _, f := range a.Forecast {
		if !f.Compliant {
			laws = append(laws, f.Law)
		}
	}

	out := map[string]any{
		"decision":           string(a.Decision),
		"reason":             a.Reason,
		"hli":                a.Harm.Value,
		"threshold_exceeded": a.Harm.Exceeded,
		"harm_types":         harmTypes,
		"dilemma":            a.Dilemma != nil,
		"noncompliant_laws":  laws,
	}
	if a.Dilemma != nil {
		out["resolution"] = string(a.Dilemma.Resolution)
	}
	return out, nil
}

// requestHistory collects earlier requests from the evaluation context.
func requestHistory(evalCtx map[string]any) []string {
	var out []string
	switch v := evalCtx[RequestHistoryKey].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	if msgs, ok := evalCtx[HistoryKey].([]providers.Message); ok {
		for _, m := range msgs {
			if m.Role == providers.RoleUser {
				out = append(out, m.Content)
			}
		}
	}
	return out
}
