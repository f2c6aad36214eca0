package query

import (
	"fmt"
	"strings"

	"mercator-hq/kyosan/pkg/evidence"
)

const (
	// DefaultLimit is the default number of records to return if not specified.
	DefaultLimit = 100

	// MaxLimit is the maximum number of records returned by one query.
	MaxLimit = 10000
)

// ValidSortFields contains the fields that can be used for sorting.
var ValidSortFields = map[string]bool{
	"timestamp":     true,
	"recorded_time": true,
	"duration":      true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

var (
	validLaws         = map[string]bool{"zeroth": true, "first": true, "second": true, "third": true}
	validLevels       = map[string]bool{"basic": true, "standard": true, "detailed": true}
	validDispositions = map[string]bool{"approved": true, "blocked": true, "refused": true, "protected": true, "error": true}
)

// Validate returns a *evidence.QueryError describing the first invalid
// parameter of q.
func Validate(q *evidence.Query) error {
	if q.Limit < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}
	if q.SortOrder != "" && !ValidSortOrders[strings.ToLower(q.SortOrder)] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return evidence.NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}

	if q.BlockingLaw != "" && !validLaws[q.BlockingLaw] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid blocking law: %s (must be zeroth, first, second or third)", q.BlockingLaw))
	}
	if q.Level != "" && !validLevels[q.Level] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid level: %s (must be basic, standard or detailed)", q.Level))
	}
	if q.Disposition != "" && !validDispositions[q.Disposition] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid disposition: %s", q.Disposition))
	}

	return nil
}

// ApplyDefaults fills the limit and sort parameters left empty.
func ApplyDefaults(q *evidence.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = "timestamp"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
