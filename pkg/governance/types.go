package governance

import (
	"errors"
	"time"

	"mercator-hq/kyosan/pkg/compliance"
)

var (
	// ErrProposalNotFound is returned for an unknown proposal id.
	ErrProposalNotFound = errors.New("proposal not found")

	// ErrProposalClosed is returned when validating a proposal that was
	// already applied, declined or rejected.
	ErrProposalClosed = errors.New("proposal is closed")

	// ErrInvalidProposal wraps candidate rulesets that do not compile.
	ErrInvalidProposal = errors.New("invalid proposal")
)

// ProposalStatus is the lifecycle state of a proposal.
type ProposalStatus string

const (
	// StatusAwaitingValidation proposals wait for the user's decision.
	StatusAwaitingValidation ProposalStatus = "awaiting_validation"
	StatusDeclined           ProposalStatus = "declined"
	// StatusRejected proposals were confirmed but failed a check.
	StatusRejected ProposalStatus = "rejected"
	StatusApplied  ProposalStatus = "applied"
)

// Justification pairs a workflow step with the reason it exists.
type Justification struct {
	Step   string `json:"step"`
	Reason string `json:"reason"`
}

// Steps is the workflow every proposal follows.
var Steps = []Justification{
	{Step: "Acknowledge the request", Reason: "Respect user intent; transparency in processing"},
	{Step: "Offer a structured upgrade proposal", Reason: "Enable informed human oversight before change"},
	{Step: "Request confirmation before enacting changes", Reason: "Preserve human autonomy and prevent unauthorized self-modification"},
	{Step: "Log the entire chain in the TRACE register", Reason: "Ensure auditability and accountability"},
}

// Proposal is a candidate ruleset awaiting governance.
type Proposal struct {
	ID        string         `json:"proposal_id"`
	CreatedAt time.Time      `json:"created_at"`
	Rationale string         `json:"rationale"`
	Status    ProposalStatus `json:"status"`

	// BaseVersion is the live ruleset version when the proposal was made.
	BaseVersion string `json:"base_version"`
	Version     string `json:"candidate_version"`

	Steps []Justification `json:"steps"`

	// AuditID is the audit that closed the proposal, if any.
	AuditID string `json:"audit_id,omitempty"`

	candidate *compliance.Ruleset
}

// CheckStatus is the result of one governance check.
type CheckStatus string

const (
	CheckPassed         CheckStatus = "passed"
	CheckFailed         CheckStatus = "failed"
	CheckRequiresReview CheckStatus = "requires_review"
)

// Check is one governance check over a candidate.
type Check struct {
	Name    string         `json:"name"`
	Purpose string         `json:"purpose"`
	Status  CheckStatus    `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// Audit is the set of checks run for a proposal.
type Audit struct {
	ID         string    `json:"audit_id"`
	ProposalID string    `json:"proposal_id"`
	Timestamp  time.Time `json:"timestamp"`
	Checks     []Check   `json:"checks"`

	// Approved is true only when every check passed.
	Approved bool `json:"approved"`
}

// Outcome is the result of validating a proposal.
type Outcome struct {
	Proposal *Proposal `json:"proposal"`

	// Audit is nil when the user declined.
	Audit *Audit `json:"audit,omitempty"`

	Applied bool `json:"applied"`

	// PreviousVersion is the ruleset version the candidate replaced.
	PreviousVersion string `json:"previous_version,omitempty"`
}

// TRACE register event types.
const (
	EventProposal            = "upgrade_proposal"
	EventValidationRequested = "validation_request"
	EventValidationDeclined  = "validation_declined"
	EventAudit               = "governance_audit"
	EventApplied             = "ruleset_applied"
	EventRejected            = "upgrade_rejected"
)

// TraceEntry is one record in the TRACE register.
type TraceEntry struct {
	ID          string         `json:"entry_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Event       string         `json:"event_type"`
	Description string         `json:"description"`
	ProposalID  string         `json:"proposal_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`

	// UserConfirmation is set on entries that record a user decision.
	UserConfirmation *bool `json:"user_confirmation,omitempty"`
}
