package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/kyosan/pkg/cli"
	"mercator-hq/kyosan/pkg/evidence"
	"mercator-hq/kyosan/pkg/evidence/export"
	evquery "mercator-hq/kyosan/pkg/evidence/query"
	"mercator-hq/kyosan/pkg/evidence/retention"
)

var evidenceFlags struct {
	backend      string
	timeRange    string
	compliant    string
	law          string
	level        string
	disposition  string
	conversation string
	limit        int
	offset       int
	order        string
	format       string
	output       string
}

var pruneFlags struct {
	days       int
	maxRecords int64
	archive    string
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Query the decision audit trail",
	Long: `Query, export and prune the decision records written for every
evaluation.

Records hold a hash of the input, never the input itself.

Subcommands:
  query  - Query decision records with filters
  prune  - Apply the retention policy now`,
}

var evidenceQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query decision records",
	Long: `Query decision records with various filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z"

Examples:
  # Query specific time range
  kyosan evidence query --time-range "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z"

  # Everything the First Law blocked
  kyosan evidence query --law first

  # Export non-compliant decisions to CSV
  kyosan evidence query --compliant=false --format csv --output blocked.csv`,
	RunE: queryEvidence,
}

var evidencePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records outside the retention policy",
	Long: `Delete records older than the retention period, then the oldest
records beyond the record limit. Flags override the configured policy.

Examples:
  # Apply the configured policy
  kyosan evidence prune

  # Keep 30 days and archive what is deleted
  kyosan evidence prune --days 30 --archive /var/lib/kyosan/archive`,
	RunE: pruneEvidence,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceQueryCmd)
	evidenceCmd.AddCommand(evidencePruneCmd)

	evidenceCmd.PersistentFlags().StringVar(&evidenceFlags.backend, "backend", "", "storage backend: sqlite, memory (default from config)")

	f := evidenceQueryCmd.Flags()
	f.StringVar(&evidenceFlags.timeRange, "time-range", "", "RFC3339 interval start/end")
	f.StringVar(&evidenceFlags.compliant, "compliant", "", "filter by overall verdict: true, false")
	f.StringVar(&evidenceFlags.law, "law", "", "filter by blocking law: zeroth, first, second, third")
	f.StringVar(&evidenceFlags.level, "level", "", "filter by processing level")
	f.StringVar(&evidenceFlags.disposition, "disposition", "", "filter by disposition: approved, blocked, refused, protected, error")
	f.StringVar(&evidenceFlags.conversation, "conversation", "", "filter by conversation ID")
	f.IntVar(&evidenceFlags.limit, "limit", evquery.DefaultLimit, "maximum number of records")
	f.IntVar(&evidenceFlags.offset, "offset", 0, "records to skip")
	f.StringVar(&evidenceFlags.order, "order", "desc", "sort order by timestamp: asc, desc")
	f.StringVar(&evidenceFlags.format, "format", "text", "output format: text, json, csv")
	f.StringVarP(&evidenceFlags.output, "output", "o", "", "write to file instead of stdout")

	evidencePruneCmd.Flags().IntVar(&pruneFlags.days, "days", -1, "retention period in days (0 keeps records forever)")
	evidencePruneCmd.Flags().Int64Var(&pruneFlags.maxRecords, "max-records", -1, "maximum records to keep (0 is unlimited)")
	evidencePruneCmd.Flags().StringVar(&pruneFlags.archive, "archive", "", "directory to archive deleted records to")
}

// buildQuery turns the query flags into a validated query.
func buildQuery() (*evidence.Query, error) {
	q := &evidence.Query{
		BlockingLaw:    evidenceFlags.law,
		Level:          evidenceFlags.level,
		Disposition:    evidenceFlags.disposition,
		ConversationID: evidenceFlags.conversation,
		Limit:          evidenceFlags.limit,
		Offset:         evidenceFlags.offset,
		SortBy:         "timestamp",
		SortOrder:      evidenceFlags.order,
	}

	if evidenceFlags.timeRange != "" {
		start, end, err := parseTimeRange(evidenceFlags.timeRange)
		if err != nil {
			return nil, cli.NewUsageError("time-range", err.Error())
		}
		q.StartTime, q.EndTime = &start, &end
	}

	if evidenceFlags.compliant != "" {
		compliant, err := strconv.ParseBool(evidenceFlags.compliant)
		if err != nil {
			return nil, cli.NewUsageError("compliant", "must be true or false")
		}
		q.Compliant = &compliant
	}

	evquery.ApplyDefaults(q)
	if err := evquery.Validate(q); err != nil {
		return nil, cli.NewUsageError("query", err.Error())
	}
	return q, nil
}

func parseTimeRange(s string) (time.Time, time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid time range format (expected: start/end)")
	}

	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}
	return start, end, nil
}

func queryEvidence(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evidenceFlags.format)
	if err != nil {
		return err
	}
	q, err := buildQuery()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openEvidence(cfg, evidenceFlags.backend)
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if evidenceFlags.output != "" {
		f, err := os.Create(evidenceFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch format {
	case cli.FormatJSON:
		return streamEvidence(ctx, store, q, export.NewJSONExporter(true), out)
	case cli.FormatCSV:
		return streamEvidence(ctx, store, q, export.NewCSVExporter(true), out)
	}

	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("query failed: %w", err))
	}
	total, err := store.Count(ctx, &evidence.Query{
		StartTime:      q.StartTime,
		EndTime:        q.EndTime,
		ConversationID: q.ConversationID,
		Compliant:      q.Compliant,
		BlockingLaw:    q.BlockingLaw,
		Level:          q.Level,
		Disposition:    q.Disposition,
	})
	if err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("count failed: %w", err))
	}
	return writeEvidenceText(out, records, total, q)
}

type streamExporter interface {
	ExportStream(ctx context.Context, recordsCh <-chan *evidence.DecisionRecord, w io.Writer) error
}

func streamEvidence(ctx context.Context, store evidence.Storage, q *evidence.Query, exporter streamExporter, w io.Writer) error {
	recordsCh, errCh, err := store.QueryStream(ctx, q)
	if err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("query failed: %w", err))
	}
	if err := exporter.ExportStream(ctx, recordsCh, w); err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("export failed: %w", err))
	}
	if err := <-errCh; err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("query failed: %w", err))
	}
	return nil
}

func writeEvidenceText(w io.Writer, records []*evidence.DecisionRecord, total int64, q *evidence.Query) error {
	if q.StartTime != nil && q.EndTime != nil {
		fmt.Fprintf(w, "Time range: %s to %s\n",
			q.StartTime.Format(time.RFC3339),
			q.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Matching records: %d (showing %d)\n\n", total, len(records))

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No records found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tID\tLEVEL\tDISPOSITION\tLAW\tSYSTEMS\tDURATION")
	for _, r := range records {
		law := r.BlockingLaw
		if law == "" {
			law = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Timestamp.UTC().Format(time.RFC3339),
			r.ID,
			r.Level,
			r.Disposition,
			law,
			len(r.ActiveSystems),
			r.Duration.Round(time.Microsecond),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if shown := int64(q.Offset + len(records)); shown < total {
		fmt.Fprintf(w, "\n... %d more records. Use --limit and --offset for pagination.\n", total-shown)
	}
	return nil
}

func pruneEvidence(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	policy := retention.ConfigFrom(cfg.Evidence.Retention)
	policy.PruneSchedule = ""
	if pruneFlags.days >= 0 {
		policy.RetentionDays = pruneFlags.days
	}
	if pruneFlags.maxRecords >= 0 {
		policy.MaxRecords = pruneFlags.maxRecords
	}
	if pruneFlags.archive != "" {
		policy.ArchivePath = pruneFlags.archive
	}

	store, err := openEvidence(cfg, evidenceFlags.backend)
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}
	defer store.Close()

	deleted, err := retention.NewPruner(store, policy).Prune(context.Background())
	if err != nil {
		return cli.NewCommandError("evidence prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d records (retention %d days, max records %d)\n",
		deleted, policy.RetentionDays, policy.MaxRecords)
	return nil
}
