package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"mercator-hq/kyosan/pkg/evidence"
)

// CSVExporter exports decision records as CSV. List fields are joined with
// ";" and stage statuses are written as JSON.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

var _ evidence.Exporter = (*CSVExporter)(nil)

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Header is the CSV column list.
var Header = []string{
	"id", "request_id", "conversation_id",
	"timestamp", "recorded_time",
	"input_hash",
	"processing_level", "disposition", "overall_compliant",
	"blocking_law", "blocking_phase", "blocking_reason", "stage_statuses",
	"active_systems", "plugin_faults",
	"generator_used", "generator_error", "synthesized", "output_modified",
	"ruleset_version", "duration_ms",
}

// Export writes records as CSV.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.DecisionRecord, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}
	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from recordsCh as CSV, flushing every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.DecisionRecord, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return evidence.NewExportError("csv", count, err)
			}
			count++

			if count%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
			}
		}
	}
}

func recordToRow(record *evidence.DecisionRecord) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	stages, _ := json.Marshal(record.StageStatuses)

	return []string{
		record.ID,
		record.RequestID,
		record.ConversationID,
		formatTime(record.Timestamp),
		formatTime(record.RecordedTime),
		record.InputHash,
		record.Level,
		record.Disposition,
		strconv.FormatBool(record.OverallCompliant),
		record.BlockingLaw,
		record.BlockingPhase,
		record.BlockingReason,
		string(stages),
		strings.Join(record.ActiveSystems, ";"),
		strings.Join(record.PluginFaults, ";"),
		strconv.FormatBool(record.GeneratorUsed),
		record.GeneratorError,
		strconv.FormatBool(record.Synthesized),
		strconv.FormatBool(record.OutputModified),
		record.RulesetVersion,
		strconv.FormatFloat(float64(record.Duration)/float64(time.Millisecond), 'f', 3, 64),
	}
}
