// Package retention prunes the decision audit trail.
//
// Pruning runs in two phases: records older than RetentionDays are deleted,
// then, if more than MaxRecords remain, the oldest are deleted until the
// count fits. Either phase can be disabled with 0. When ArchivePath is set,
// every deleted batch is first exported there as JSON.
//
// Scheduled pruning uses github.com/robfig/cron/v3:
//
//	pruner := retention.NewPruner(store, retention.ConfigFrom(cfg.Evidence.Retention))
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
//
// The CLI calls Prune directly for on-demand runs.
package retention
