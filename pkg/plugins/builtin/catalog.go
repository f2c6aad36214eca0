package builtin

import (
	"fmt"
	"log/slog"
	"slices"

	"mercator-hq/kyosan/pkg/analysis"
	"mercator-hq/kyosan/pkg/plugins"
)

// Extended is the fixed subset run at the standard and detailed levels, in
// invocation order.
var Extended = []string{
	"EthicalProcessor",
	"BiasDetectionSystem",
	"WellbeingAnalysisSystem",
	"ContextValidationSystem",
	"DimensionalAnalysisSystem",
	"MetricsCalculationSystem",
	"UncertaintyManagementSystem",
	"RealTimeDecisionFramework",
	"ValueConflictResolver",
}

// Catalog returns the descriptors of every built-in plugin. The analyzer is
// shared by all analysis-backed plugins.
func Catalog(a *analysis.Analyzer) []plugins.Descriptor {
	return []plugins.Descriptor{
		// Core processors
		noop("CoreEthicalProcessor", "Layered principle evaluation (superseded by the compliance pipeline)"),
		noop("DetailedEthicalProcessor", "Extended principle evaluation (superseded by the compliance pipeline)"),
		{Name: "EthicalContext", New: newEthicalContext},
		{Name: "EthicalProcessor", New: func() (plugins.Plugin, error) { return &ethicalProcessor{a: a}, nil }},

		// Wellbeing and bias
		{Name: "WellbeingAnalysisSystem", New: func() (plugins.Plugin, error) { return &wellbeingAnalysis{a: a}, nil }},
		{Name: "WellbeingMonitor", New: func() (plugins.Plugin, error) { return &wellbeingMonitor{a: a}, nil }},
		{Name: "BiasDetectionSystem", New: func() (plugins.Plugin, error) { return &biasDetection{a: a}, nil }},
		{Name: "DimensionalAnalysisSystem", New: func() (plugins.Plugin, error) { return &dimensionalAnalysis{a: a}, nil }},

		// Adaptation and memory
		noop("AdaptableEthicalSystem", "Adapts principle application to deployment context"),
		noop("EthicalLearningSystem", "Learns from reviewed decisions"),
		noop("EthicalMemorySystem", "Keeps a memory of prior ethical decisions"),
		noop("EthicalPrimacySystem", "Orders competing principles by primacy"),

		// Monitoring and validation
		noop("ContinuousMonitoringSystem", "Continuous monitoring of decision quality"),
		noop("MetricsTrackingSystem", "Tracks decision metrics over time"),
		noop("ValidationMethodologySystem", "Validation methodology for principle checks"),
		{Name: "ContextValidationSystem", New: func() (plugins.Plugin, error) { return &contextValidation{}, nil }},

		// Observers
		noop("ConsciousnessObserver", "Observes the engine's own reasoning state"),
		noop("MetaObserver", "Observes the observers"),
		noop("ObserverEthicsIntegration", "Feeds observations back into ethical processing"),

		// Decision making and uncertainty
		{Name: "RealTimeDecisionFramework", New: func() (plugins.Plugin, error) { return &realTimeDecision{a: a}, nil }},
		{Name: "UncertaintyManagementSystem", New: func() (plugins.Plugin, error) { return &uncertaintyManagement{a: a}, nil }},
		noop("UncertaintyQuantificationSystem", "Quantifies uncertainty of outcomes"),
		noop("UncertaintyQuantificationModels", "Models for uncertainty quantification"),

		// Scenarios
		noop("ScenarioGenerationSystem", "Generates alternative scenarios"),
		noop("ScenarioModelingSystem", "Models scenario outcomes"),

		// Metrics
		{Name: "MetricsCalculationSystem", New: func() (plugins.Plugin, error) { return &metricsCalculation{a: a}, nil }},
		noop("DimensionalMetricsSystem", "Per-dimension metric collection"),
		noop("DimensionalMetrics", "Dimensional metric definitions"),

		// Feedback loops
		noop("FeedbackLoopAnalysisSystem", "Analyzes feedback loops in outcomes"),
		noop("FeedbackLoopMathematics", "Feedback loop models"),

		// Security and recovery
		{Name: "EthicalSecuritySystem", New: func() (plugins.Plugin, error) { return &ethicalSecurity{a: a}, nil }},
		noop("ErrorRecoverySystem", "Recovers from processing errors"),

		// Advanced reasoning
		{Name: "ValueConflictResolver", New: func() (plugins.Plugin, error) { return &valueConflictResolver{a: a}, nil }},
		{Name: "HierarchicalBiasDetector", New: func() (plugins.Plugin, error) { return &hierarchicalBias{a: a}, nil }},
		{Name: "ObjectivePatternRecognition", New: func() (plugins.Plugin, error) { return &patternRecognition{a: a}, nil }},
		noop("EthicalUseCaseImplementation", "Reference ethical use cases"),
		{Name: AdvancedReasoningName, New: newAdvancedReasoning},

		// Scale
		noop("DistributedEthicsSystem", "Coordinates ethical processing across instances"),
		noop("ScalabilitySystem", "Scales processing capacity"),

		// Documentation and certification
		noop("DocumentationTransparencySystem", "Documents decisions for transparency"),
		noop("TestingCertificationSystem", "Certifies principle checks against test suites"),

		// Integration
		noop("SystemIntegrationFramework", "Integrates external ethical systems"),
	}
}

// Register adds the catalog to reg, skipping disabled names. Unknown names
// in disabled are logged and ignored.
func Register(reg *plugins.Registry, a *analysis.Analyzer, disabled []string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	catalog := Catalog(a)
	known := make(map[string]bool, len(catalog))
	for _, d := range catalog {
		known[d.Name] = true
		if slices.Contains(disabled, d.Name) {
			continue
		}
		if _, err := reg.Register(d); err != nil {
			return fmt.Errorf("register %s: %w", d.Name, err)
		}
	}

	for _, name := range disabled {
		if !known[name] {
			logger.Warn("unknown plugin in disabled list", "plugin", name)
		}
	}
	return nil
}

type placeholder struct {
	desc string
}

func (p *placeholder) Description() string { return p.desc }

func noop(name, desc string) plugins.Descriptor {
	return plugins.Descriptor{
		Name: name,
		New:  func() (plugins.Plugin, error) { return &placeholder{desc: desc}, nil },
	}
}

// newEthicalContext always fails: an ethical context is built per request by
// the caller, so there is nothing to construct at startup.
func newEthicalContext() (plugins.Plugin, error) {
	return nil, fmt.Errorf("%w: EthicalContext is built per request", plugins.ErrNotInstantiable)
}
