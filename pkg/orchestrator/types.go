package orchestrator

import (
	"time"

	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/plugins"
)

// CorePipelineName identifies the compliance pipeline among the systems that
// took part in a request.
const CorePipelineName = "PrincipleBasedEthicalProcessor"

// ExecutionResult is the outcome of one orchestration call.
type ExecutionResult struct {
	// Response is the text returned to the user. It is never empty.
	Response string `json:"response"`

	// Verdict is the compliance pipeline's verdict. Plugins never change it.
	Verdict compliance.ComplianceVerdict `json:"compliance"`

	// Status is the verdict's disposition: approved, blocked, refused,
	// protected or error.
	Status string `json:"status"`

	// ActiveSystems names every system that took part, in invocation order.
	// It is empty when the request was not approved.
	ActiveSystems []string `json:"active_systems"`

	// Analyses holds one outcome per active system.
	Analyses map[string]plugins.Outcome `json:"system_analyses"`

	// Faults names the plugins whose invocation failed. They are still
	// listed in ActiveSystems.
	Faults []string `json:"faults,omitempty"`

	// Level is the processing level the request ran at.
	Level Level `json:"processing_level"`

	// Generated is true when Response came from the response generator.
	Generated bool `json:"generated"`

	// GeneratorErr records a generator failure that was recovered from.
	GeneratorErr error `json:"-"`

	// Synthesized is true when Response is the fallback narrative.
	Synthesized bool `json:"synthesized"`

	// Safety reports what the output safety filter changed.
	Safety compliance.SafetyReport `json:"output_safety"`

	// RulesetVersion is the version of the ruleset the verdict was made with.
	RulesetVersion string `json:"ruleset_version,omitempty"`

	Summary  SystemSummary `json:"system_summary"`
	Duration time.Duration `json:"duration_ns"`
}

// SystemSummary describes participation at a glance.
type SystemSummary struct {
	// TotalSystems counts every registered plugin plus the core pipeline.
	TotalSystems       int      `json:"total_systems"`
	ActiveInProcessing int      `json:"active_in_processing"`
	SystemsUsed        []string `json:"systems_used"`
	ProcessingLevel    Level    `json:"processing_level"`
}

// Observer receives orchestration events, typically for metrics.
type Observer interface {
	ObservePlugin(plugin string, kind string, d time.Duration)
	ObserveProcess(level string, disposition string, d time.Duration)
}
