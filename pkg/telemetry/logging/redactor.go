package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/kyosan/pkg/config"
)

// Redactor replaces PII in log attributes.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
	PatternEmail       = "email"
	PatternCreditCard  = "credit_card"
	PatternSSN         = "ssn"
	PatternPhone       = "phone"
	PatternPassword    = "password"
)

// Applied in order: the more specific number formats run before phone.
var defaultPatterns = []struct {
	name, regex, replacement string
}{
	{PatternAPIKey, `\b(sk-(?:or-)?[A-Za-z0-9_-]{8,})`, "sk-***"},
	{PatternBearerToken, `Bearer\s+[A-Za-z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternEmail, `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`, "[email]"},
	{PatternCreditCard, `\b(?:\d{4}[- ]?){3}\d{4}\b`, "[card]"},
	{PatternSSN, `\b\d{3}-\d{2}-\d{4}\b`, "[ssn]"},
	{PatternPhone, `(?:\+?\d{1,2}[-.\s]?)?\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`, "[phone]"},
	{PatternPassword, `(?i)(password|passwd|pwd)\s*[:=]\s*\S+`, "$1=***"},
}

// Attribute keys whose values are never logged.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey", "authorization",
}

// NewRedactor compiles the built-in patterns followed by custom ones.
func NewRedactor(custom []config.RedactPattern) (*Redactor, error) {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p.Name, err)
		}
		replacement := p.Replacement
		if replacement == "" {
			replacement = "***"
		}
		r.patterns = append(r.patterns, redactPattern{name: p.Name, regex: regex, replacement: replacement})
	}
	return r, nil
}

// RedactString applies every pattern to s.
func (r *Redactor) RedactString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// RedactAttr redacts string values, recursing into groups. Values of
// sensitive keys are masked entirely.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	value := a.Value.Resolve()

	if isSensitiveKey(a.Key) {
		if value.Kind() == slog.KindString && value.String() == "" {
			return a
		}
		return slog.String(a.Key, "***")
	}

	switch value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(value.String()))
	case slog.KindGroup:
		group := value.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: value}
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
