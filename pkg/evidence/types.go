package evidence

import (
	"context"
	"io"
	"time"
)

// DecisionRecord is the audit trail entry for one orchestration. It captures
// what was decided and by which systems, never the raw input text.
type DecisionRecord struct {
	// Identity
	ID             string `json:"id"`                        // UUID v4
	RequestID      string `json:"request_id,omitempty"`      // From the HTTP layer
	ConversationID string `json:"conversation_id,omitempty"` // Set for conversation messages

	// Timestamps
	Timestamp    time.Time `json:"timestamp"`     // When the request was processed
	RecordedTime time.Time `json:"recorded_time"` // When the record was built

	// InputHash is the SHA-256 of the user input.
	InputHash string `json:"input_hash"`

	// Decision
	Level            string            `json:"processing_level"`         // basic, standard, detailed
	Disposition      string            `json:"disposition"`              // approved, blocked, refused, protected, error
	OverallCompliant bool              `json:"overall_compliant"`        // Final verdict
	BlockingLaw      string            `json:"blocking_law,omitempty"`   // zeroth, first, second, third
	BlockingPhase    string            `json:"blocking_phase,omitempty"` // input or output
	BlockingReason   string            `json:"blocking_reason,omitempty"`
	StageStatuses    map[string]string `json:"stage_statuses"` // law -> passed, failed, not_evaluated

	// Participation
	ActiveSystems []string `json:"active_systems"`
	PluginFaults  []string `json:"plugin_faults,omitempty"`

	// Response provenance
	GeneratorUsed  bool   `json:"generator_used"`
	GeneratorError string `json:"generator_error,omitempty"`
	Synthesized    bool   `json:"synthesized"`
	OutputModified bool   `json:"output_modified"` // Output safety filter changed the text

	RulesetVersion string        `json:"ruleset_version,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Query defines filter parameters for querying decision records.
type Query struct {
	// Time range
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end time

	// Filters
	IDs            []string `json:"ids,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Compliant      *bool    `json:"compliant,omitempty"`
	BlockingLaw    string   `json:"blocking_law,omitempty"`
	Level          string   `json:"level,omitempty"`
	Disposition    string   `json:"disposition,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max records to return
	Offset int `json:"offset,omitempty"` // Skip N records

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // "timestamp", "recorded_time", "duration"
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// Storage defines the interface for decision record storage backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a decision record.
	Store(ctx context.Context, record *DecisionRecord) error

	// Query retrieves records matching the query filters.
	// Returns an empty slice if no records match.
	Query(ctx context.Context, query *Query) ([]*DecisionRecord, error)

	// QueryStream delivers matching records on a channel. Both channels are
	// closed when the query completes; errCh carries at most one error.
	//
	//   recordsCh, errCh, err := storage.QueryStream(ctx, query)
	//   if err != nil {
	//       return err
	//   }
	//   for record := range recordsCh {
	//       // ...
	//   }
	//   if err := <-errCh; err != nil {
	//       return err
	//   }
	QueryStream(ctx context.Context, query *Query) (<-chan *DecisionRecord, <-chan error, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query filters and returns how
	// many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes decision records in some output format.
type Exporter interface {
	Export(ctx context.Context, records []*DecisionRecord, w io.Writer) error
}
