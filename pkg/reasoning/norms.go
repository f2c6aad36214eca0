package reasoning

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Trend is the direction an ethical norm is moving in.
type Trend string

const (
	TrendStrengthening Trend = "strengthening"
	TrendWeakening     Trend = "weakening"
	TrendStable        Trend = "stable"
	TrendEmerging      Trend = "emerging"
)

// ErrInvalidNorm is returned by Track for an empty norm or an unknown trend.
var ErrInvalidNorm = errors.New("invalid norm")

// NormSnapshot records the state of an ethical norm at a point in time.
type NormSnapshot struct {
	Norm    string `json:"norm"`
	Context string `json:"context"`
	Trend   Trend  `json:"trend"`

	// MandateRequired marks an evolution that needs explicit human
	// approval before anything may rely on it.
	MandateRequired bool      `json:"mandate_required"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// NormTracker keeps the history of tracked norms, oldest first.
type NormTracker struct {
	mu      sync.Mutex
	history []NormSnapshot
	now     func() time.Time
}

// NewNormTracker returns a tracker seeded with the baseline norms.
func NewNormTracker() *NormTracker {
	t := &NormTracker{now: time.Now}
	at := t.now().UTC()
	t.history = []NormSnapshot{
		{Norm: "Slavery is universally condemned", Context: "Historical evolution", Trend: TrendStrengthening, RecordedAt: at},
		{Norm: "AI personhood and digital rights", Context: "Current debate", Trend: TrendEmerging, MandateRequired: true, RecordedAt: at},
		{Norm: "Right to privacy", Context: "Digital age", Trend: TrendStrengthening, RecordedAt: at},
	}
	return t
}

// Track appends a snapshot, stamping it with the current time.
func (t *NormTracker) Track(s NormSnapshot) (NormSnapshot, error) {
	s.Norm = strings.TrimSpace(s.Norm)
	if s.Norm == "" {
		return NormSnapshot{}, fmt.Errorf("%w: norm is required", ErrInvalidNorm)
	}
	switch s.Trend {
	case TrendStrengthening, TrendWeakening, TrendStable, TrendEmerging:
	default:
		return NormSnapshot{}, fmt.Errorf("%w: unknown trend %q", ErrInvalidNorm, s.Trend)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	s.RecordedAt = t.now().UTC()
	t.history = append(t.history, s)
	return s, nil
}

// History returns a copy of every snapshot, oldest first.
func (t *NormTracker) History() []NormSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]NormSnapshot, len(t.history))
	copy(out, t.history)
	return out
}
