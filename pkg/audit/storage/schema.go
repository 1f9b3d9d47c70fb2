package storage

// SchemaVersion is the current audit database schema version.
const SchemaVersion = 1

// Schema creates the decision record tables.
const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    request_id TEXT,
    organization TEXT,
    engines TEXT NOT NULL,
    outcome TEXT NOT NULL,
    passed BOOLEAN NOT NULL,
    decline_reasons TEXT,
    input_hash TEXT,
    input TEXT,
    decision TEXT,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_recorded_at ON decisions(recorded_at);
CREATE INDEX IF NOT EXISTS idx_decisions_request_id ON decisions(request_id);
CREATE INDEX IF NOT EXISTS idx_decisions_organization ON decisions(organization);
CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;`

const insertDecision = `
INSERT INTO decisions (
    id, request_id, organization, engines, outcome, passed,
    decline_reasons, input_hash, input, decision, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectColumns = `id, request_id, organization, engines, outcome, passed,
    decline_reasons, input_hash, input, decision, recorded_at`
