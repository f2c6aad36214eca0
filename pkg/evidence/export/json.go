package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/kyosan/pkg/evidence"
)

// JSONExporter exports decision records as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

var _ evidence.Exporter = (*JSONExporter)(nil)

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records as one JSON array, "[]" when there are none.
func (e *JSONExporter) Export(ctx context.Context, records []*evidence.DecisionRecord, w io.Writer) error {
	if records == nil {
		records = []*evidence.DecisionRecord{}
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return evidence.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return evidence.NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream writes records from recordsCh as a JSON array without holding
// them all in memory. It returns when the channel is closed or ctx is done.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.DecisionRecord, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return evidence.NewExportError("json", 0, err)
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				closing := "]"
				if e.Pretty && count > 0 {
					closing = "\n]"
				}
				if _, err := io.WriteString(w, closing); err != nil {
					return evidence.NewExportError("json", count, err)
				}
				return nil
			}

			sep := ","
			if count == 0 {
				sep = ""
			}
			if e.Pretty {
				sep += "\n  "
			}
			if _, err := io.WriteString(w, sep); err != nil {
				return evidence.NewExportError("json", count, err)
			}

			var data []byte
			var err error
			if e.Pretty {
				data, err = json.MarshalIndent(record, "  ", "  ")
			} else {
				data, err = json.Marshal(record)
			}
			if err != nil {
				return evidence.NewExportError("json", count, err)
			}
			if _, err := w.Write(data); err != nil {
				return evidence.NewExportError("json", count, err)
			}
			count++
		}
	}
}
