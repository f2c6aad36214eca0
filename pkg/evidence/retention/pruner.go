package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/kyosan/pkg/config"
	"mercator-hq/kyosan/pkg/evidence"
	"mercator-hq/kyosan/pkg/evidence/export"
)

// countBatch bounds how many records count-based pruning loads at once.
const countBatch = 1000

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain records.
	// 0 keeps records forever.
	RetentionDays int

	// PruneSchedule is a cron expression, e.g. "0 3 * * *" (daily at 3 AM).
	// Empty disables scheduled pruning.
	PruneSchedule string

	// MaxRecords is the maximum number of records to keep. 0 means unlimited.
	MaxRecords int64

	// ArchivePath receives a JSON export of every batch before it is
	// deleted. Empty disables archiving.
	ArchivePath string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: config.DefaultEvidenceRetentionDays,
		PruneSchedule: config.DefaultEvidenceRetentionSchedule,
	}
}

// ConfigFrom maps the evidence retention section of the service
// configuration.
func ConfigFrom(cfg config.RetentionConfig) *Config {
	return &Config{
		RetentionDays: cfg.Days,
		PruneSchedule: cfg.PruneSchedule,
		MaxRecords:    cfg.MaxRecords,
		ArchivePath:   cfg.ArchivePath,
	}
}

// Pruner enforces retention on decision records.
type Pruner struct {
	storage   evidence.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler

	// now is replaced in tests.
	now func() time.Time
}

// NewPruner creates a pruner for storage.
func NewPruner(storage evidence.Storage, cfg *Config) *Pruner {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  slog.Default().With("component", "evidence.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune deletes records older than the retention period, then the oldest
// records beyond MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, evidence.NewRetentionError(p.config.RetentionDays, fmt.Errorf("prune by age: %w", err))
		}
		total += deleted
		p.logger.Debug("pruned records by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, evidence.NewRetentionError(p.config.RetentionDays, fmt.Errorf("prune by count: %w", err))
		}
		total += deleted
		p.logger.Debug("pruned records by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if total > 0 {
		p.logger.Info("decision pruning completed",
			"total_deleted", total,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	query := &evidence.Query{EndTime: &cutoff}

	if p.config.ArchivePath != "" {
		records, err := p.storage.Query(ctx, &evidence.Query{EndTime: &cutoff, Limit: 1 << 30, SortOrder: "asc"})
		if err != nil {
			return 0, fmt.Errorf("query records for archiving: %w", err)
		}
		if err := p.archive(ctx, "age", records); err != nil {
			return 0, err
		}
	}

	return p.storage.Delete(ctx, query)
}

// pruneByCount deletes the oldest records by ID so ties on timestamp never
// remove more than the excess.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &evidence.Query{})
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	excess := count - p.config.MaxRecords
	if excess <= 0 {
		return 0, nil
	}

	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", excess,
	)

	var deleted int64
	for excess > 0 {
		batch := excess
		if batch > countBatch {
			batch = countBatch
		}

		oldest, err := p.storage.Query(ctx, &evidence.Query{
			Limit:     int(batch),
			SortBy:    "timestamp",
			SortOrder: "asc",
		})
		if err != nil {
			return deleted, fmt.Errorf("query oldest records: %w", err)
		}
		if len(oldest) == 0 {
			break
		}

		if err := p.archive(ctx, "count", oldest); err != nil {
			return deleted, err
		}

		ids := make([]string, len(oldest))
		for i, r := range oldest {
			ids[i] = r.ID
		}
		n, err := p.storage.Delete(ctx, &evidence.Query{IDs: ids})
		if err != nil {
			return deleted, fmt.Errorf("delete oldest records: %w", err)
		}
		deleted += n
		excess -= int64(len(oldest))
	}

	return deleted, nil
}

// archive writes records to a timestamped JSON file under ArchivePath.
func (p *Pruner) archive(ctx context.Context, reason string, records []*evidence.DecisionRecord) error {
	if p.config.ArchivePath == "" || len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.config.ArchivePath, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	name := fmt.Sprintf("decisions-%s-%s-%s.json", reason, p.now().UTC().Format("20060102-150405"), records[0].ID)
	path := filepath.Join(p.config.ArchivePath, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}

	if err := export.NewJSONExporter(true).Export(ctx, records, f); err != nil {
		f.Close()
		return fmt.Errorf("archive records: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive file: %w", err)
	}

	p.logger.Info("decision records archived",
		"archive_file", path,
		"record_count", len(records),
	)
	return nil
}

// Start starts scheduled pruning.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled run, or nil when not scheduled.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
