package query

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/kyosan/pkg/evidence"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name    string
		query   evidence.Query
		wantErr bool
	}{
		{name: "empty", query: evidence.Query{}},
		{name: "full", query: evidence.Query{
			StartTime: &earlier, EndTime: &now, BlockingLaw: "zeroth", Level: "detailed",
			Disposition: "refused", Limit: 50, Offset: 10, SortBy: "duration", SortOrder: "ASC",
		}},
		{name: "negative limit", query: evidence.Query{Limit: -1}, wantErr: true},
		{name: "limit too large", query: evidence.Query{Limit: MaxLimit + 1}, wantErr: true},
		{name: "negative offset", query: evidence.Query{Offset: -5}, wantErr: true},
		{name: "unknown sort field", query: evidence.Query{SortBy: "input_hash"}, wantErr: true},
		{name: "unknown sort order", query: evidence.Query{SortOrder: "sideways"}, wantErr: true},
		{name: "inverted time range", query: evidence.Query{StartTime: &now, EndTime: &earlier}, wantErr: true},
		{name: "unknown law", query: evidence.Query{BlockingLaw: "fourth"}, wantErr: true},
		{name: "unknown level", query: evidence.Query{Level: "extreme"}, wantErr: true},
		{name: "unknown disposition", query: evidence.Query{Disposition: "maybe"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.query)
			if tt.wantErr {
				var qErr *evidence.QueryError
				if !errors.As(err, &qErr) {
					t.Errorf("expected QueryError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	q := &evidence.Query{}
	ApplyDefaults(q)
	if q.Limit != DefaultLimit || q.SortBy != "timestamp" || q.SortOrder != "desc" {
		t.Errorf("unexpected defaults %+v", q)
	}

	q = &evidence.Query{Limit: 5, SortBy: "duration", SortOrder: "asc"}
	ApplyDefaults(q)
	if q.Limit != 5 || q.SortBy != "duration" || q.SortOrder != "asc" {
		t.Errorf("expected explicit values to be kept, got %+v", q)
	}
}
