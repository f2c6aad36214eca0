package plugins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Status is the lifecycle state of a registered plugin.
type Status string

const (
	// StatusActive plugins are instantiated and invocable.
	StatusActive Status = "active"
	// StatusAvailable plugins exist but could not be instantiated; the
	// descriptor is kept for a lazy upgrade.
	StatusAvailable Status = "available"
	// StatusClassNotFound plugins are declared without a constructor.
	StatusClassNotFound Status = "class_not_found"
	// StatusImportError plugins are missing dependencies.
	StatusImportError Status = "import_error"
	// StatusRuntimeError plugins failed to construct for any other reason.
	StatusRuntimeError Status = "runtime_error"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusActive, StatusAvailable, StatusClassNotFound, StatusImportError, StatusRuntimeError}

// ID indexes a record in the registry arena.
type ID int

// Record is a read-only snapshot of one registered plugin.
type Record struct {
	ID          ID         `json:"-"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	Capability  Capability `json:"capability"`
	Description string     `json:"description,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type entry struct {
	desc       Descriptor
	status     Status // empty until instantiated
	plugin     Plugin
	capability Capability
	err        error
}

func (e *entry) record(id ID) Record {
	rec := Record{
		ID:         id,
		Name:       e.desc.Name,
		Status:     e.status,
		Capability: e.capability,
	}
	if e.plugin != nil {
		rec.Description = e.plugin.Description()
	}
	if e.err != nil {
		rec.Error = e.err.Error()
	}
	return rec
}

// Registry is the process-wide plugin arena. Registration order is
// preserved and is the iteration order everywhere.
type Registry struct {
	mu       sync.RWMutex
	entries  []*entry
	byName   map[string]ID
	settings map[string]Config
	logger   *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byName: make(map[string]ID),
		logger: logger.With("component", "plugins.registry"),
	}
}

// Register adds a descriptor. The plugin is not constructed until
// Instantiate.
func (r *Registry) Register(d Descriptor) (ID, error) {
	if d.Name == "" {
		return 0, fmt.Errorf("plugins: name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name]; exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicate, d.Name)
	}
	id := ID(len(r.entries))
	r.entries = append(r.entries, &entry{desc: d})
	r.byName[d.Name] = id
	return id, nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(d Descriptor) ID {
	id, err := r.Register(d)
	if err != nil {
		panic(err)
	}
	return id
}

// Instantiate resolves every record that has not been resolved yet. Records
// resolved by an earlier call are left alone, so calling it twice has no
// further effect. Construction failures are recorded, never returned.
func (r *Registry) Instantiate(settings map[string]Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settings == nil {
		r.settings = settings
	}

	resolved := 0
	for _, e := range r.entries {
		if e.status != "" {
			continue
		}
		p, status, err := build(e.desc, r.settings[e.desc.Name])
		e.status, e.err = status, err
		if p != nil {
			e.plugin = p
			e.capability = capabilityOf(p)
		}
		resolved++

		if err != nil {
			r.logger.Debug("plugin not active",
				"plugin", e.desc.Name,
				"status", string(status),
				"error", err,
			)
		}
	}

	if resolved > 0 {
		counts := r.countsLocked()
		r.logger.Info("plugin registry instantiated",
			"total", len(r.entries),
			"active", counts[StatusActive],
			"available", counts[StatusAvailable],
			"failed", counts[StatusClassNotFound]+counts[StatusImportError]+counts[StatusRuntimeError],
		)
	}
}

// build constructs and configures one plugin and classifies the outcome.
func build(d Descriptor, cfg Config) (p Plugin, status Status, err error) {
	if d.New == nil {
		return nil, StatusClassNotFound, fmt.Errorf("%w: no constructor for %s", ErrPluginNotFound, d.Name)
	}

	defer func() {
		if v := recover(); v != nil {
			p, status, err = nil, StatusRuntimeError, &PanicError{Value: v}
		}
	}()

	p, err = d.New()
	switch {
	case errors.Is(err, ErrUnavailable):
		return nil, StatusImportError, err
	case errors.Is(err, ErrNotInstantiable):
		return nil, StatusAvailable, err
	case err != nil:
		return nil, StatusRuntimeError, err
	case p == nil:
		return nil, StatusRuntimeError, fmt.Errorf("constructor for %s returned nil", d.Name)
	}

	if c, ok := p.(Configurable); ok {
		if cfg == nil {
			cfg = Config{}
		}
		if err := c.Configure(cfg); err != nil {
			return nil, StatusAvailable, fmt.Errorf("configure %s: %w", d.Name, err)
		}
	}

	return p, StatusActive, nil
}

// Upgrade makes one attempt to instantiate an available plugin and promotes
// it to active on success. An active plugin is returned as is. On failure
// the record is left exactly as it was and the error is returned.
// Concurrent callers are serialized so a plugin is never built twice.
func (r *Registry) Upgrade(id ID) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.entryLocked(id)
	if err != nil {
		return Record{}, err
	}

	switch e.status {
	case StatusActive:
		return e.record(id), nil
	case StatusAvailable:
	default:
		return e.record(id), fmt.Errorf("plugin %s is %s", e.desc.Name, e.status)
	}

	p, status, err := build(e.desc, r.settings[e.desc.Name])
	if status != StatusActive {
		return e.record(id), err
	}

	e.plugin, e.capability, e.status, e.err = p, capabilityOf(p), StatusActive, nil
	r.logger.Info("plugin upgraded to active", "plugin", e.desc.Name)
	return e.record(id), nil
}

// Invoke runs an active plugin. The returned error is always a *Fault;
// panics are recovered into a FaultPanic.
func (r *Registry) Invoke(ctx context.Context, id ID, input string, evalCtx map[string]any) (out Outcome, err error) {
	r.mu.RLock()
	e, lookupErr := r.entryLocked(id)
	var (
		name       string
		status     Status
		p          Plugin
		capability Capability
	)
	if lookupErr == nil {
		name, status, p, capability = e.desc.Name, e.status, e.plugin, e.capability
	}
	r.mu.RUnlock()

	if lookupErr != nil {
		return Outcome{}, &Fault{Plugin: fmt.Sprint(id), Kind: FaultUnavailable, Message: lookupErr.Error(), Cause: lookupErr}
	}
	if status != StatusActive {
		return Outcome{}, &Fault{Plugin: name, Kind: FaultUnavailable, Message: fmt.Sprintf("plugin is %s", status)}
	}
	if capability == CapabilityNoOp {
		return AvailableOutcome(name, name+" loaded and available"), nil
	}

	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			perr := &PanicError{Value: v}
			out, err = Outcome{}, &Fault{Plugin: name, Kind: FaultPanic, Message: perr.Error(), Cause: perr}
		}
	}()

	var (
		result  map[string]any
		kind    OutcomeKind
		callErr error
	)
	switch capability {
	case CapabilityProcesses:
		result, callErr = p.(Processor).Process(ctx, input, evalCtx)
		kind = OutcomeProcessed
	case CapabilityAnalyzes:
		result, callErr = p.(Analyzer).Analyze(ctx, input, evalCtx)
		kind = OutcomeAnalyzed
	}
	if callErr != nil {
		return Outcome{}, &Fault{Plugin: name, Kind: FaultError, Message: callErr.Error(), Cause: callErr}
	}

	return Outcome{Plugin: name, Kind: kind, Result: result, Duration: time.Since(start)}, nil
}

func (r *Registry) entryLocked(id ID) (*entry, error) {
	if id < 0 || int(id) >= len(r.entries) {
		return nil, fmt.Errorf("%w: id %d", ErrPluginNotFound, id)
	}
	return r.entries[id], nil
}

// Lookup returns the ID registered for name.
func (r *Registry) Lookup(name string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

// Get returns the record for name.
func (r *Registry) Get(name string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return r.entries[id].record(id), nil
}

// Record returns the record for id.
func (r *Registry) Record(id ID) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, err := r.entryLocked(id)
	if err != nil {
		return Record{}, err
	}
	return e.record(id), nil
}

// Records returns every record in registration order.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.record(ID(i))
	}
	return out
}

// GetByStatus returns the names of the plugins with the given status, in
// registration order.
func (r *Registry) GetByStatus(status Status) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, e := range r.entries {
		if e.status == status {
			names = append(names, e.desc.Name)
		}
	}
	return names
}

// Counts returns the number of plugins per status.
func (r *Registry) Counts() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countsLocked()
}

func (r *Registry) countsLocked() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, e := range r.entries {
		if e.status != "" {
			counts[e.status]++
		}
	}
	return counts
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
