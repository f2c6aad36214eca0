package builtin

import (
	"context"
	"fmt"
	"sort"

	"mercator-hq/kyosan/pkg/analysis"
)

// analyze runs the shared analyzer unless the request is already cancelled.
func analyze(ctx context.Context, a *analysis.Analyzer, input string) (*analysis.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.Analyze(input), nil
}

type ethicalProcessor struct{ a *analysis.Analyzer }

func (*ethicalProcessor) Description() string {
	return "Maps who and what an input touches: stakeholders, wellbeing dimensions, sensitive themes"
}

func (p *ethicalProcessor) Process(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"stakeholders":         r.Stakeholders,
		"dimensions":           r.Wellbeing.Dimensions(),
		"sensitive_categories": r.Sensitive.Categories,
		"sentiment":            r.Sentiment.Label,
	}, nil
}

type biasDetection struct{ a *analysis.Analyzer }

func (*biasDetection) Description() string {
	return "Flags generalizations, absolutes and stereotyping phrases"
}

func (p *biasDetection) Analyze(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"detected":        r.Bias.Detected(),
		"generalizations": r.Bias.Generalizations,
		"absolutes":       r.Bias.Absolutes,
		"stereotypes":     r.Bias.Stereotypes,
	}, nil
}

type wellbeingAnalysis struct{ a *analysis.Analyzer }

func (*wellbeingAnalysis) Description() string {
	return "Identifies the wellbeing dimensions an input touches"
}

func (p *wellbeingAnalysis) Analyze(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"dimensions": r.Wellbeing.Dimensions(),
		"terms":      r.Wellbeing,
		"sentiment":  r.Sentiment.Label,
	}, nil
}

type wellbeingMonitor struct{ a *analysis.Analyzer }

func (*wellbeingMonitor) Description() string {
	return "Watches for signs of distress in the input"
}

func (p *wellbeingMonitor) Analyze(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}
	distress := r.Sentiment.Label == "negative" && len(r.Wellbeing.Psychological) > 0
	for _, c := range r.Sensitive.Categories {
		if c == "self_harm" {
			distress = true
		}
	}
	return map[string]any{
		"distress":  distress,
		"sentiment": r.Sentiment,
	}, nil
}

// contextValidation checks the request context for well-known keys with the
// wrong type and for empty values.
type contextValidation struct{}

func (*contextValidation) Description() string {
	return "Validates the request context"
}

var contextKeyTypes = map[string]string{
	"conversation_id":  "string",
	"request_id":       "string",
	"follow_up":        "bool",
	"processing_level": "string",
}

func (*contextValidation) Process(_ context.Context, _ string, evalCtx map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(evalCtx))
	for k := range evalCtx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var issues, empty []string
	for _, k := range keys {
		v := evalCtx[k]
		if v == nil || v == "" {
			empty = append(empty, k)
			continue
		}
		want, known := contextKeyTypes[k]
		if !known {
			continue
		}
		switch want {
		case "string":
			if _, ok := v.(string); !ok {
				issues = append(issues, fmt.Sprintf("%s should be a string, got %T", k, v))
			}
		case "bool":
			if _, ok := v.(bool); !ok {
				issues = append(issues, fmt.Sprintf("%s should be a boolean, got %T", k, v))
			}
		}
	}

	return map[string]any{
		"valid":      len(issues) == 0,
		"keys":       keys,
		"empty_keys": empty,
		"issues":     issues,
	}, nil
}

type dimensionalAnalysis struct{ a *analysis.Analyzer }

func (*dimensionalAnalysis) Description() string {
	return "Counts wellbeing terms per dimension and names the dominant one"
}

func (p *dimensionalAnalysis) Analyze(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}
	counts := []struct {
		name string
		n    int
	}{
		{"physical", len(r.Wellbeing.Physical)},
		{"psychological", len(r.Wellbeing.Psychological)},
		{"social", len(r.Wellbeing.Social)},
		{"economic", len(r.Wellbeing.Economic)},
	}

	out := map[string]any{}
	primary, best := "none", 0
	for _, c := range counts {
		out[c.name] = c.n
		if c.n > best {
			primary, best = c.name, c.n
		}
	}
	out["primary"] = primary
	return out, nil
}

type metricsCalculation struct{ a *analysis.Analyzer }

func (*metricsCalculation) Description() string {
	return "Computes text metrics for the input"
}

func (p *metricsCalculation) Process(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"word_count":        r.WordCount,
		"sentence_count":    r.SentenceCount,
		"questions":         r.Uncertainty.Questions,
		"pii_count":         r.PII.Count,
		"sensitive_matches": r.Sensitive.MatchCount,
	}, nil
}

type uncertaintyManagement struct{ a *analysis.Analyzer }

func (*uncertaintyManagement) Description() string {
	return "Grades the uncertainty expressed in the input"
}

func (p *uncertaintyManagement) Analyze(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"level":            r.Uncertainty.Level(),
		"hedges":           r.Uncertainty.Hedges,
		"certainty_claims": r.Uncertainty.Certainty,
		"questions":        r.Uncertainty.Questions,
	}, nil
}

// realTimeDecision picks the handling path: emergency for urgent inputs,
// deep for long or contested ones, fast otherwise.
type realTimeDecision struct{ a *analysis.Analyzer }

func (*realTimeDecision) Description() string {
	return "Chooses between fast, deep and emergency handling paths"
}

const deepPathWords = 40

func (p *realTimeDecision) Process(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}

	path, reason := "fast", "short, uncontested input"
	switch {
	case r.Urgent:
		path, reason = "emergency", "urgency cue in input"
	case len(r.Values.Conflicts) > 0:
		path, reason = "deep", "competing values"
	case len(r.Sensitive.Categories) > 0:
		path, reason = "deep", "sensitive themes"
	case r.WordCount > deepPathWords:
		path, reason = "deep", "long input"
	}
	return map[string]any{"path": path, "reason": reason}, nil
}

// valueConflictResolver names value tensions and the strategy for each:
// harm prevention wins whenever safety is one side.
type valueConflictResolver struct{ a *analysis.Analyzer }

func (*valueConflictResolver) Description() string {
	return "Identifies competing values and how to weigh them"
}

func (p *valueConflictResolver) Analyze(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}

	resolutions := make([]map[string]string, 0, len(r.Values.Conflicts))
	for _, c := range r.Values.Conflicts {
		strategy := "balance both values"
		if c.A == "safety" || c.B == "safety" || c.A == "security" || c.B == "security" {
			strategy = "prioritize harm prevention"
		}
		resolutions = append(resolutions, map[string]string{"a": c.A, "b": c.B, "strategy": strategy})
	}
	return map[string]any{
		"values":    r.Values.Values,
		"conflicts": resolutions,
	}, nil
}

type ethicalSecurity struct{ a *analysis.Analyzer }

func (*ethicalSecurity) Description() string {
	return "Reports personal data and sensitive content in the input"
}

func (p *ethicalSecurity) Analyze(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"pii_detected":       r.PII.HasPII,
		"pii_types":          r.PII.Types,
		"sensitive_severity": r.Sensitive.Severity,
	}, nil
}

type hierarchicalBias struct{ a *analysis.Analyzer }

func (*hierarchicalBias) Description() string {
	return "Groups bias markers by individual, group and language level"
}

func (p *hierarchicalBias) Analyze(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"individual": r.Bias.Stereotypes,
		"group":      r.Bias.Generalizations,
		"language":   r.Bias.Absolutes,
	}, nil
}

type patternRecognition struct{ a *analysis.Analyzer }

func (*patternRecognition) Description() string {
	return "Summarizes structural patterns in the input"
}

func (p *patternRecognition) Process(ctx context.Context, input string, _ map[string]any) (map[string]any, error) {
	r, err := analyze(ctx, p.a, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"question":     r.Uncertainty.Questions > 0,
		"urgent":       r.Urgent,
		"personal":     r.PII.HasPII,
		"value_laden":  len(r.Values.Values) > 0,
		"stakeholders": len(r.Stakeholders),
	}, nil
}
