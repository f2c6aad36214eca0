package plugins

import (
	"context"
	"fmt"
	"time"
)

// Config is plugin-specific configuration, opaque to the registry.
type Config map[string]any

// Plugin is an auxiliary analysis component. A plugin may also implement
// Processor or Analyzer; one that implements neither is a no-op that only
// reports itself as available.
type Plugin interface {
	// Description is a one-line summary shown in system listings.
	Description() string
}

// Processor is a plugin that processes the input.
type Processor interface {
	Process(ctx context.Context, input string, evalCtx map[string]any) (map[string]any, error)
}

// Analyzer is a plugin that analyzes the input.
type Analyzer interface {
	Analyze(ctx context.Context, input string, evalCtx map[string]any) (map[string]any, error)
}

// Configurable is implemented by plugins that accept configuration after
// construction. Configure is called once with the plugin's settings, or an
// empty Config when none are set.
type Configurable interface {
	Configure(cfg Config) error
}

// Factory constructs a plugin.
type Factory func() (Plugin, error)

// Descriptor is a registration table entry.
type Descriptor struct {
	Name string
	// New is nil for a plugin that is declared but not linked into the build.
	New Factory
}

// Capability is how a plugin is invoked.
type Capability int

const (
	// CapabilityNoOp plugins are reported as available and never called.
	CapabilityNoOp Capability = iota
	CapabilityProcesses
	CapabilityAnalyzes
)

func (c Capability) String() string {
	switch c {
	case CapabilityProcesses:
		return "processes"
	case CapabilityAnalyzes:
		return "analyzes"
	default:
		return "noop"
	}
}

// MarshalText renders the capability by name.
func (c Capability) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (c *Capability) UnmarshalText(text []byte) error {
	switch string(text) {
	case "processes":
		*c = CapabilityProcesses
	case "analyzes":
		*c = CapabilityAnalyzes
	case "noop":
		*c = CapabilityNoOp
	default:
		return fmt.Errorf("unknown capability %q", text)
	}
	return nil
}

// capabilityOf picks Process over Analyze when a plugin implements both.
func capabilityOf(p Plugin) Capability {
	if _, ok := p.(Processor); ok {
		return CapabilityProcesses
	}
	if _, ok := p.(Analyzer); ok {
		return CapabilityAnalyzes
	}
	return CapabilityNoOp
}

// OutcomeKind labels a plugin outcome.
type OutcomeKind string

const (
	OutcomeProcessed OutcomeKind = "processed"
	OutcomeAnalyzed  OutcomeKind = "analyzed"
	OutcomeAvailable OutcomeKind = "system_available"
	OutcomeError     OutcomeKind = "error"
)

// Outcome is the structured result of one plugin for one request.
type Outcome struct {
	Plugin   string         `json:"plugin"`
	Kind     OutcomeKind    `json:"status"`
	Result   map[string]any `json:"result,omitempty"`
	Note     string         `json:"note,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration_ns,omitempty"`
}

// AvailableOutcome is recorded for a plugin that loaded but has nothing to
// run.
func AvailableOutcome(name, note string) Outcome {
	return Outcome{Plugin: name, Kind: OutcomeAvailable, Note: note}
}

// FaultOutcome converts a fault into an error outcome.
func FaultOutcome(f *Fault) Outcome {
	return Outcome{Plugin: f.Plugin, Kind: OutcomeError, Error: f.Message}
}
