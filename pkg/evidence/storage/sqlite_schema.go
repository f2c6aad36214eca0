package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements that create the decision database.
const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    request_id TEXT,
    conversation_id TEXT,

    -- Timestamps
    timestamp TIMESTAMP NOT NULL,
    recorded_time TIMESTAMP NOT NULL,

    input_hash TEXT NOT NULL,

    -- Decision
    processing_level TEXT NOT NULL,
    disposition TEXT NOT NULL,
    overall_compliant BOOLEAN NOT NULL,
    blocking_law TEXT,
    blocking_phase TEXT,
    blocking_reason TEXT,
    stage_statuses TEXT,

    -- Participation
    active_systems TEXT,
    plugin_faults TEXT,

    -- Response provenance
    generator_used BOOLEAN,
    generator_error TEXT,
    synthesized BOOLEAN,
    output_modified BOOLEAN,

    ruleset_version TEXT,
    duration_us INTEGER
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
CREATE INDEX IF NOT EXISTS idx_decisions_conversation_id ON decisions(conversation_id);
CREATE INDEX IF NOT EXISTS idx_decisions_blocking_law ON decisions(blocking_law);
CREATE INDEX IF NOT EXISTS idx_decisions_disposition ON decisions(disposition);
CREATE INDEX IF NOT EXISTS idx_decisions_level ON decisions(processing_level);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

// columns lists the decisions columns in scan order.
const columns = `id, request_id, conversation_id,
	timestamp, recorded_time,
	input_hash,
	processing_level, disposition, overall_compliant, blocking_law, blocking_phase, blocking_reason, stage_statuses,
	active_systems, plugin_faults,
	generator_used, generator_error, synthesized, output_modified,
	ruleset_version, duration_us`

// sortColumns maps query sort fields to columns.
var sortColumns = map[string]string{
	"timestamp":     "timestamp",
	"recorded_time": "recorded_time",
	"duration":      "duration_us",
}
