package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mercator-hq/kyosan/pkg/evidence"
)

// MemoryStorage implements evidence.Storage with an in-memory map. Records
// are lost on restart; use it for tests and the "memory" backend.
type MemoryStorage struct {
	records map[string]*evidence.DecisionRecord
	mu      sync.RWMutex
}

var _ evidence.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*evidence.DecisionRecord),
	}
}

// Store saves a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = copyRecord(record)
	return nil
}

// Query returns copies of the matching records, sorted and paginated like the
// SQLite backend.
func (s *MemoryStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectRecords(query), nil
}

// QueryStream streams the result of Query through a channel.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.DecisionRecord, <-chan error, error) {
	s.mu.RLock()
	results := s.selectRecords(query)
	s.mu.RUnlock()

	recordsCh := make(chan *evidence.DecisionRecord, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range results {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes matching records.
func (s *MemoryStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops every record.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*evidence.DecisionRecord)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// selectRecords must be called with s.mu held.
func (s *MemoryStorage) selectRecords(query *evidence.Query) []*evidence.DecisionRecord {
	results := []*evidence.DecisionRecord{}
	for _, record := range s.records {
		if matchesQuery(record, query) {
			results = append(results, copyRecord(record))
		}
	}

	asc := strings.EqualFold(query.SortOrder, "asc")
	key := sortKey(query.SortBy)
	sort.Slice(results, func(i, j int) bool {
		a, b := key(results[i]), key(results[j])
		if a == b {
			if asc {
				return results[i].ID < results[j].ID
			}
			return results[i].ID > results[j].ID
		}
		if asc {
			return a < b
		}
		return a > b
	})

	limit := DefaultQueryLimit
	if query.Limit > 0 {
		limit = query.Limit
	}
	if query.Offset >= len(results) {
		return []*evidence.DecisionRecord{}
	}
	results = results[query.Offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func sortKey(field string) func(*evidence.DecisionRecord) int64 {
	switch field {
	case "recorded_time":
		return func(r *evidence.DecisionRecord) int64 { return r.RecordedTime.UnixNano() }
	case "duration":
		return func(r *evidence.DecisionRecord) int64 { return int64(r.Duration) }
	default:
		return func(r *evidence.DecisionRecord) int64 { return r.Timestamp.UnixNano() }
	}
}

func matchesQuery(record *evidence.DecisionRecord, query *evidence.Query) bool {
	if query.StartTime != nil && record.Timestamp.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.Timestamp.After(*query.EndTime) {
		return false
	}

	if len(query.IDs) > 0 {
		found := false
		for _, id := range query.IDs {
			if id == record.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if query.ConversationID != "" && record.ConversationID != query.ConversationID {
		return false
	}

	if query.Compliant != nil && record.OverallCompliant != *query.Compliant {
		return false
	}
	if query.BlockingLaw != "" && record.BlockingLaw != query.BlockingLaw {
		return false
	}
	if query.Level != "" && record.Level != query.Level {
		return false
	}
	if query.Disposition != "" && record.Disposition != query.Disposition {
		return false
	}

	return true
}

func copyRecord(record *evidence.DecisionRecord) *evidence.DecisionRecord {
	c := *record
	if record.StageStatuses != nil {
		c.StageStatuses = make(map[string]string, len(record.StageStatuses))
		for k, v := range record.StageStatuses {
			c.StageStatuses[k] = v
		}
	}
	c.ActiveSystems = append([]string(nil), record.ActiveSystems...)
	c.PluginFaults = append([]string(nil), record.PluginFaults...)
	return &c
}
