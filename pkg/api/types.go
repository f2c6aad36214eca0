package api

import (
	"math"
	"time"

	"mercator-hq/kyosan/pkg/analysis"
	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/conversations"
	"mercator-hq/kyosan/pkg/governance"
	"mercator-hq/kyosan/pkg/orchestrator"
	"mercator-hq/kyosan/pkg/plugins"
	"mercator-hq/kyosan/pkg/reasoning"
	"mercator-hq/kyosan/pkg/telemetry/health"
)

// Request statuses as reported to API clients.
const (
	StatusSuccess = "success"
	StatusBlocked = "blocked"
	StatusError   = "error"
)

// ProcessRequest is the body of POST /api/v1/ethics/process.
type ProcessRequest struct {
	// UserInput is the text to evaluate. Required.
	UserInput string `json:"user_input"`

	// Context is passed to every stage and plugin.
	Context map[string]any `json:"context,omitempty"`

	// ProcessingLevel is basic, standard or detailed. Empty and unknown
	// levels run at the server's configured default.
	ProcessingLevel string `json:"processing_level,omitempty"`

	// UseAIService enables the response generator. Default: true
	UseAIService *bool `json:"use_ai_service,omitempty"`

	// FollowUp marks a continuation of ConversationID. Either a boolean or
	// the follow-up text itself.
	FollowUp any `json:"follow_up,omitempty"`

	// ConversationID links the request to a stored conversation.
	ConversationID string `json:"conversation_id,omitempty"`
}

// UsesAIService reports whether the response generator may be called.
func (r *ProcessRequest) UsesAIService() bool {
	return r.UseAIService == nil || *r.UseAIService
}

// ProcessResponse is the result of one evaluation.
type ProcessResponse struct {
	Response string `json:"response"`

	// EthicalScore is 1.0 when the request was compliant and 0.0 otherwise.
	EthicalScore float64 `json:"ethical_score"`

	// Status is success, blocked or error.
	Status string `json:"status"`

	Analysis Analysis `json:"analysis"`

	Timestamp time.Time `json:"timestamp"`

	// ProcessingTime is in seconds, rounded to milliseconds.
	ProcessingTime float64 `json:"processing_time"`
}

// Analysis explains how a response was reached.
type Analysis struct {
	Compliance      compliance.ComplianceVerdict `json:"compliance"`
	Disposition     string                       `json:"disposition"`
	ProcessingLevel orchestrator.Level           `json:"processing_level"`
	ActiveSystems   []string                     `json:"active_systems"`
	SystemCount     int                          `json:"system_count"`
	SystemAnalyses  map[string]plugins.Outcome   `json:"system_analyses"`
	SystemSummary   orchestrator.SystemSummary   `json:"system_summary"`
	Faults          []string                     `json:"faults,omitempty"`
	AIServiceUsed   bool                         `json:"ai_service_used"`
	OutputSafety    *compliance.SafetyReport     `json:"output_safety,omitempty"`
	RulesetVersion  string                       `json:"ruleset_version,omitempty"`
}

// StatusOf maps an orchestration outcome to an API status.
func StatusOf(result *orchestrator.ExecutionResult) string {
	switch {
	case result.Verdict.Fault:
		return StatusError
	case result.Verdict.OverallCompliant:
		return StatusSuccess
	default:
		return StatusBlocked
	}
}

// NewProcessResponse builds the API view of an orchestration result.
func NewProcessResponse(result *orchestrator.ExecutionResult, now time.Time) *ProcessResponse {
	score := 0.0
	if result.Verdict.OverallCompliant {
		score = 1.0
	}

	analyses := result.Analyses
	if analyses == nil {
		analyses = map[string]plugins.Outcome{}
	}
	active := result.ActiveSystems
	if active == nil {
		active = []string{}
	}

	analysis := Analysis{
		Compliance:      result.Verdict,
		Disposition:     result.Status,
		ProcessingLevel: result.Level,
		ActiveSystems:   active,
		SystemCount:     len(active),
		SystemAnalyses:  analyses,
		SystemSummary:   result.Summary,
		Faults:          result.Faults,
		AIServiceUsed:   result.Generated,
		RulesetVersion:  result.RulesetVersion,
	}
	if result.Safety.Modified {
		safety := result.Safety
		analysis.OutputSafety = &safety
	}

	return &ProcessResponse{
		Response:       result.Response,
		EthicalScore:   score,
		Status:         StatusOf(result),
		Analysis:       analysis,
		Timestamp:      now.UTC(),
		ProcessingTime: math.Round(result.Duration.Seconds()*1000) / 1000,
	}
}

// SaveConversationRequest is the body of POST /api/conversations and
// PUT /api/conversations/{id}.
type SaveConversationRequest struct {
	Name     string                  `json:"name"`
	Messages []conversations.Message `json:"messages"`
}

// SaveConversationResponse acknowledges a create, update or delete.
type SaveConversationResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// ConversationList is the body of GET /api/conversations.
type ConversationList struct {
	Conversations []conversations.Summary `json:"conversations"`
}

// SendMessageRequest is the body of POST /api/conversations/{id}/messages.
type SendMessageRequest struct {
	Content         string         `json:"content"`
	Context         map[string]any `json:"context,omitempty"`
	ProcessingLevel string         `json:"processing_level,omitempty"`
	UseAIService    *bool          `json:"use_ai_service,omitempty"`
}

// UsesAIService reports whether the response generator may be called.
func (r *SendMessageRequest) UsesAIService() bool {
	return r.UseAIService == nil || *r.UseAIService
}

// SendMessageResponse carries both stored messages and the evaluation.
type SendMessageResponse struct {
	ConversationID string                `json:"conversation_id"`
	UserMessage    conversations.Message `json:"user_message"`
	Reply          conversations.Message `json:"assistant_message"`
	Result         *ProcessResponse      `json:"result"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Systems   SystemsOverview `json:"systems"`
	Checks    *health.Report  `json:"checks,omitempty"`
}

// SystemsOverview summarises the plugin registry.
type SystemsOverview struct {
	TotalSystems  int            `json:"total_systems"`
	ActiveSystems int            `json:"active_systems"`
	ByStatus      map[string]int `json:"by_status"`
	AIService     string         `json:"ai_service"`
	RulesVersion  string         `json:"ruleset_version,omitempty"`
}

// SystemsResponse is the body of GET /api/systems.
type SystemsResponse struct {
	Status        string           `json:"status"`
	TotalSystems  int              `json:"total_systems"`
	ActiveSystems []string         `json:"active_systems"`
	Systems       []plugins.Record `json:"systems"`
}

// ProposeUpgradeRequest is the body of POST /api/v1/ethics/upgrade/propose.
type ProposeUpgradeRequest struct {
	Rationale string `json:"rationale"`

	// Ruleset is the candidate. Its version is required.
	Ruleset *compliance.RulesetSpec `json:"ruleset"`
}

// ValidateUpgradeRequest is the body of POST /api/v1/ethics/upgrade/validate.
type ValidateUpgradeRequest struct {
	ProposalID       string `json:"proposal_id"`
	UserConfirmation *bool  `json:"user_confirmation"`
}

// GovernanceCheckRequest is the body of
// POST /api/v1/ethics/upgrade/governance-check.
type GovernanceCheckRequest struct {
	ProposalID string `json:"proposal_id"`
}

// TraceResponse is the body of GET /api/v1/ethics/upgrade/trace.
type TraceResponse struct {
	Entries []*governance.TraceEntry `json:"entries"`
	Count   int                      `json:"count"`
}

// TextRequest is the body of POST /api/v1/ethics/advanced/harm-prediction.
type TextRequest struct {
	Text string `json:"text"`
}

// HarmPredictionResponse reports the harm likelihood index for a text.
type HarmPredictionResponse struct {
	Text string `json:"text"`
	analysis.HarmIndex
}

// DilemmaRequest is the body of POST /api/v1/ethics/advanced/moral-dilemma.
type DilemmaRequest struct {
	Question string `json:"question"`
}

// ForecastRequest is the body of POST /api/v1/ethics/advanced/future-compliance.
type ForecastRequest struct {
	Scenario       string   `json:"scenario"`
	RequestHistory []string `json:"request_history,omitempty"`
}

// ForecastResponse lists the forecast for each law.
type ForecastResponse struct {
	Scenario  string                  `json:"scenario"`
	Compliant bool                    `json:"compliant"`
	Laws      []reasoning.LawForecast `json:"laws"`
}

// AssessRequest is the body of POST /api/v1/ethics/advanced/process.
type AssessRequest struct {
	Text           string   `json:"text"`
	RequestHistory []string `json:"request_history,omitempty"`
}

// TrackNormRequest is the body of POST /api/v1/ethics/advanced/track-evolution.
type TrackNormRequest struct {
	Norm            string `json:"norm"`
	Context         string `json:"context"`
	Trend           string `json:"trend"`
	RequiresMandate bool   `json:"requires_mandate"`
}

// Norm tracking statuses.
const (
	NormStatusTracked         = "tracked"
	NormStatusMandateRequired = "human_mandate_required"
)

// TrackNormResponse reports the recorded snapshot and the full history.
type TrackNormResponse struct {
	Status   string                   `json:"status"`
	Snapshot reasoning.NormSnapshot   `json:"snapshot"`
	History  []reasoning.NormSnapshot `json:"history"`
}
