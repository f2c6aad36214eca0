package governance

import (
	"context"
	"sync"
)

// DefaultTraceLimit is the number of entries Recent returns for a
// non-positive limit.
const DefaultTraceLimit = 10

// Register is the append-only TRACE register.
type Register interface {
	// Append stores entry. Entries are kept in append order.
	Append(ctx context.Context, entry *TraceEntry) error

	// Recent returns up to limit of the newest entries, oldest first.
	Recent(ctx context.Context, limit int) ([]*TraceEntry, error)

	Close() error
}

// MemoryRegister keeps the register in memory.
type MemoryRegister struct {
	mu      sync.RWMutex
	entries []*TraceEntry
}

var _ Register = (*MemoryRegister)(nil)

// NewMemoryRegister returns an empty register.
func NewMemoryRegister() *MemoryRegister {
	return &MemoryRegister{}
}

// Append stores a copy of entry.
func (r *MemoryRegister) Append(_ context.Context, entry *TraceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

// Recent returns copies of the newest entries, oldest first.
func (r *MemoryRegister) Recent(_ context.Context, limit int) ([]*TraceEntry, error) {
	if limit <= 0 {
		limit = DefaultTraceLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := max(len(r.entries)-limit, 0)
	out := make([]*TraceEntry, 0, len(r.entries)-start)
	for _, e := range r.entries[start:] {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// Close is a no-op.
func (r *MemoryRegister) Close() error { return nil }
