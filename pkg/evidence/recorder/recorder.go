package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/config"
	"mercator-hq/kyosan/pkg/evidence"
	"mercator-hq/kyosan/pkg/orchestrator"
)

// Config contains configuration for the decision recorder.
type Config struct {
	// Enabled enables recording. A disabled recorder accepts and discards
	// entries.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds both enqueueing a record and writing it.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  config.DefaultEvidenceRecorderAsyncBuffer,
		WriteTimeout: config.DefaultEvidenceRecorderWriteTimeout,
	}
}

// ConfigFrom maps the evidence section of the service configuration.
func ConfigFrom(cfg config.EvidenceConfig) *Config {
	return &Config{
		Enabled:      cfg.Enabled,
		AsyncBuffer:  cfg.Recorder.AsyncBuffer,
		WriteTimeout: cfg.Recorder.WriteTimeout,
	}
}

// Entry is one orchestration to record.
type Entry struct {
	RequestID      string
	ConversationID string

	// Input is hashed; it is never stored.
	Input string

	Result *orchestrator.ExecutionResult

	// Time defaults to now.
	Time time.Time
}

// Stats counts what happened to recorded entries.
type Stats struct {
	Enqueued int64 `json:"enqueued"`
	Written  int64 `json:"written"`
	Dropped  int64 `json:"dropped"`
	Failed   int64 `json:"failed"`
}

// Recorder writes decision records asynchronously so that orchestration
// never waits on storage.
type Recorder struct {
	storage    evidence.Storage
	config     *Config
	recordChan chan *evidence.DecisionRecord
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger

	// mu orders Record against Close so nothing is enqueued after the
	// final drain.
	mu     sync.RWMutex
	closed bool

	enqueued atomic.Int64
	written  atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

// NewRecorder starts a recorder writing to storage.
func NewRecorder(storage evidence.Storage, cfg *Config) *Recorder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = config.DefaultEvidenceRecorderAsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultEvidenceRecorderWriteTimeout
	}

	r := &Recorder{
		storage:    storage,
		config:     cfg,
		recordChan: make(chan *evidence.DecisionRecord, cfg.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "evidence.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("decision recorder initialized",
		"enabled", cfg.Enabled,
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)

	return r
}

// Record builds a DecisionRecord from entry and enqueues it. It returns
// immediately unless the buffer is full, in which case it waits up to the
// write timeout and then drops the record with ErrBufferFull.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if !r.config.Enabled || entry.Result == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return evidence.NewRecorderError("", evidence.ErrRecorderClosed)
	}

	record := NewDecisionRecord(entry)

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.recordChan <- record:
		r.enqueued.Add(1)
		r.logger.Debug("decision record enqueued",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"disposition", record.Disposition,
		)
		return nil
	case <-timer.C:
		r.dropped.Add(1)
		r.logger.Error("decision record channel full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return evidence.NewRecorderError(record.ID, evidence.ErrBufferFull)
	case <-ctx.Done():
		r.dropped.Add(1)
		return evidence.NewRecorderError(record.ID, ctx.Err())
	}
}

// Stats returns a snapshot of the recorder counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Enqueued: r.enqueued.Load(),
		Written:  r.written.Load(),
		Dropped:  r.dropped.Load(),
		Failed:   r.failed.Load(),
	}
}

// Close stops accepting records, writes everything already buffered and
// waits for the worker to exit. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.logger.Info("shutting down decision recorder")
	r.wg.Wait()
	r.logger.Info("decision recorder shut down complete", "written", r.written.Load())
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			r.logger.Info("draining decision channel before shutdown",
				"pending_count", len(r.recordChan),
			)
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(record *evidence.DecisionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store decision record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	duration := time.Since(start)
	r.logger.Debug("decision recorded",
		"record_id", record.ID,
		"disposition", record.Disposition,
		"duration_ms", duration.Milliseconds(),
	)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow decision write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

// NewDecisionRecord converts an orchestration result into a record.
func NewDecisionRecord(entry Entry) *evidence.DecisionRecord {
	res := entry.Result
	v := res.Verdict

	at := entry.Time
	if at.IsZero() {
		at = time.Now()
	}

	record := &evidence.DecisionRecord{
		ID:               uuid.New().String(),
		RequestID:        entry.RequestID,
		ConversationID:   entry.ConversationID,
		Timestamp:        at.UTC(),
		RecordedTime:     time.Now().UTC(),
		InputHash:        HashString(entry.Input),
		Level:            res.Level.String(),
		Disposition:      v.Disposition(),
		OverallCompliant: v.OverallCompliant,
		BlockingReason:   v.BlockingReason,
		StageStatuses:    make(map[string]string, len(compliance.Laws)),
		ActiveSystems:    append([]string{}, res.ActiveSystems...),
		PluginFaults:     append([]string(nil), res.Faults...),
		GeneratorUsed:    res.Generated,
		Synthesized:      res.Synthesized,
		OutputModified:   res.Safety.Modified,
		RulesetVersion:   res.RulesetVersion,
		Duration:         res.Duration,
	}

	if v.Blocked() {
		record.BlockingLaw = v.BlockingLaw.String()
		record.BlockingPhase = string(v.BlockingPhase)
	}
	for _, law := range compliance.Laws {
		status := v.Stage(law).Status
		if status == "" {
			status = compliance.StatusNotEvaluated
		}
		record.StageStatuses[law.String()] = string(status)
	}
	if res.GeneratorErr != nil {
		record.GeneratorError = res.GeneratorErr.Error()
	}

	return record
}
