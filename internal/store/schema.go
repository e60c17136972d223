package store

// Schema v1 - the catalog table, one row per known file
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS dedup(dir TEXT PRIMARY KEY, size INTEGER, time INTEGER, hash BLOB);
`

// Schema v2 - indexes backing the duplicate queries
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_dedup_hash ON dedup(hash);
CREATE INDEX IF NOT EXISTS idx_dedup_hash_size ON dedup(hash, size);
CREATE INDEX IF NOT EXISTS idx_dedup_size ON dedup(size);
`
