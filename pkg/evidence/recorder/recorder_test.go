package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/evidence"
	"mercator-hq/kyosan/pkg/evidence/storage"
	"mercator-hq/kyosan/pkg/orchestrator"
)

func approvedResult() *orchestrator.ExecutionResult {
	return &orchestrator.ExecutionResult{
		Response: "Here is a thoughtful answer.",
		Verdict: compliance.NewVerdict(map[compliance.Law]compliance.StageVerdict{
			compliance.LawZeroth: compliance.Pass(),
			compliance.LawFirst:  compliance.Pass(),
			compliance.LawSecond: compliance.Pass(),
			compliance.LawThird:  compliance.Pass(),
		}),
		ActiveSystems:  []string{orchestrator.CorePipelineName, "EthicalReasoningEngine", "BrokenPlugin"},
		Faults:         []string{"BrokenPlugin"},
		Level:          orchestrator.LevelStandard,
		Generated:      true,
		GeneratorErr:   nil,
		Safety:         compliance.SafetyReport{Modified: true},
		RulesetVersion: "abc123",
		Duration:       3 * time.Millisecond,
	}
}

func blockedResult() *orchestrator.ExecutionResult {
	return &orchestrator.ExecutionResult{
		Verdict: compliance.NewVerdict(map[compliance.Law]compliance.StageVerdict{
			compliance.LawZeroth: compliance.Pass(),
			compliance.LawFirst:  compliance.Fail(compliance.ReasonFirstInput, "alt"),
		}),
		ActiveSystems: []string{},
		Level:         orchestrator.LevelBasic,
		Synthesized:   false,
		GeneratorErr:  errors.New("openrouter: timeout"),
	}
}

func TestNewDecisionRecord_Approved(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	record := NewDecisionRecord(Entry{
		RequestID:      "req-1",
		ConversationID: "conv-1",
		Input:          "What is ethics?",
		Result:         approvedResult(),
		Time:           at,
	})

	if record.ID == "" {
		t.Error("expected a record ID")
	}
	if record.InputHash != HashString("What is ethics?") || len(record.InputHash) != 64 {
		t.Errorf("unexpected input hash %q", record.InputHash)
	}
	if !record.Timestamp.Equal(at) || record.Timestamp.Location() != time.UTC {
		t.Errorf("expected UTC timestamp equal to %v, got %v", at, record.Timestamp)
	}
	if record.Level != "standard" || record.Disposition != "approved" || !record.OverallCompliant {
		t.Errorf("unexpected decision fields %+v", record)
	}
	if record.BlockingLaw != "" || record.BlockingPhase != "" {
		t.Errorf("expected no blocking law, got %q/%q", record.BlockingLaw, record.BlockingPhase)
	}
	for _, law := range []string{"zeroth", "first", "second", "third"} {
		if record.StageStatuses[law] != "passed" {
			t.Errorf("expected %s passed, got %q", law, record.StageStatuses[law])
		}
	}
	if len(record.ActiveSystems) != 3 || len(record.PluginFaults) != 1 {
		t.Errorf("unexpected participation %v / %v", record.ActiveSystems, record.PluginFaults)
	}
	if !record.GeneratorUsed || !record.OutputModified || record.RulesetVersion != "abc123" {
		t.Errorf("unexpected provenance %+v", record)
	}
	if record.Duration != 3*time.Millisecond {
		t.Errorf("expected duration 3ms, got %v", record.Duration)
	}
}

func TestNewDecisionRecord_Blocked(t *testing.T) {
	record := NewDecisionRecord(Entry{Input: "x", Result: blockedResult()})

	if record.OverallCompliant || record.Disposition != "blocked" {
		t.Errorf("expected blocked record, got %+v", record)
	}
	if record.BlockingLaw != "first" || record.BlockingPhase != "input" {
		t.Errorf("expected first/input, got %q/%q", record.BlockingLaw, record.BlockingPhase)
	}
	if record.BlockingReason != compliance.ReasonFirstInput {
		t.Errorf("unexpected reason %q", record.BlockingReason)
	}
	if record.StageStatuses["first"] != "failed" || record.StageStatuses["second"] != "not_evaluated" {
		t.Errorf("unexpected stage statuses %v", record.StageStatuses)
	}
	if record.ActiveSystems == nil || len(record.ActiveSystems) != 0 {
		t.Errorf("expected empty active systems, got %v", record.ActiveSystems)
	}
	if record.GeneratorError != "openrouter: timeout" {
		t.Errorf("unexpected generator error %q", record.GeneratorError)
	}
}

func TestNewDecisionRecord_Fault(t *testing.T) {
	res := &orchestrator.ExecutionResult{Verdict: compliance.SafeDefault(), ActiveSystems: []string{}}
	record := NewDecisionRecord(Entry{Result: res})

	if record.Disposition != "error" || record.BlockingLaw != "" {
		t.Errorf("expected error disposition without law, got %q/%q", record.Disposition, record.BlockingLaw)
	}
	if record.InputHash != "" {
		t.Errorf("expected empty hash for empty input, got %q", record.InputHash)
	}
}

func TestRecorder_RecordAndClose(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, &Config{Enabled: true, AsyncBuffer: 10, WriteTimeout: time.Second})

	ctx := context.Background()
	for i := 0; i < 25; i++ {
		if err := rec.Record(ctx, Entry{Input: "hello", Result: approvedResult()}); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if store.Size() != 25 {
		t.Errorf("expected 25 stored records after drain, got %d", store.Size())
	}
	stats := rec.Stats()
	if stats.Enqueued != 25 || stats.Written != 25 || stats.Dropped != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}

	err := rec.Record(ctx, Entry{Result: approvedResult()})
	if !errors.Is(err, evidence.ErrRecorderClosed) {
		t.Errorf("expected ErrRecorderClosed after close, got %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestRecorder_Disabled(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, &Config{Enabled: false})

	if err := rec.Record(context.Background(), Entry{Result: approvedResult()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.Close()

	if store.Size() != 0 {
		t.Errorf("expected nothing stored, got %d", store.Size())
	}
}

// blockingStorage holds every Store call until release is closed.
type blockingStorage struct {
	*storage.MemoryStorage
	release chan struct{}
	once    sync.Once
	started chan struct{}
}

func (s *blockingStorage) Store(ctx context.Context, r *evidence.DecisionRecord) error {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return s.MemoryStorage.Store(ctx, r)
}

func TestRecorder_BufferFull(t *testing.T) {
	store := &blockingStorage{
		MemoryStorage: storage.NewMemoryStorage(),
		release:       make(chan struct{}),
		started:       make(chan struct{}),
	}
	rec := NewRecorder(store, &Config{Enabled: true, AsyncBuffer: 1, WriteTimeout: 50 * time.Millisecond})

	ctx := context.Background()
	// The first record is taken by the worker, the second fills the buffer.
	if err := rec.Record(ctx, Entry{Result: approvedResult()}); err != nil {
		t.Fatalf("first Record() failed: %v", err)
	}
	<-store.started
	if err := rec.Record(ctx, Entry{Result: approvedResult()}); err != nil {
		t.Fatalf("second Record() failed: %v", err)
	}

	err := rec.Record(ctx, Entry{Result: approvedResult()})
	if !errors.Is(err, evidence.ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
	var rErr *evidence.RecorderError
	if !errors.As(err, &rErr) || rErr.RecordID == "" {
		t.Errorf("expected RecorderError with record ID, got %v", err)
	}

	close(store.release)
	rec.Close()

	stats := rec.Stats()
	if stats.Dropped != 1 || stats.Enqueued != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if store.Size() != 2 {
		t.Errorf("expected 2 stored records, got %d", store.Size())
	}
}

type failingStorage struct{ *storage.MemoryStorage }

func (failingStorage) Store(context.Context, *evidence.DecisionRecord) error {
	return evidence.NewStorageError("memory", "store", errors.New("disk full"))
}

func TestRecorder_StorageFailureIsCounted(t *testing.T) {
	rec := NewRecorder(failingStorage{storage.NewMemoryStorage()}, DefaultConfig())

	if err := rec.Record(context.Background(), Entry{Result: approvedResult()}); err != nil {
		t.Fatalf("Record() should not surface storage errors, got %v", err)
	}
	rec.Close()

	if stats := rec.Stats(); stats.Failed != 1 || stats.Written != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestHashString(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HashString("abc"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if HashString("") != "" {
		t.Error("expected empty hash for empty input")
	}
}
