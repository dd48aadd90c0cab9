package index

const SchemaVersion = 1

const schemaSQL = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

-- One row per refresh of a pack
CREATE TABLE IF NOT EXISTS scans (
    id TEXT PRIMARY KEY,
    pack_dir TEXT NOT NULL,
    domain TEXT NOT NULL,
    entity_count INTEGER NOT NULL DEFAULT 0,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_finished ON scans(finished_at);

-- Entities of the latest scan; entity_id is not unique because packs may
-- declare an ID twice
CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scan_id TEXT NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
    entity_id TEXT NOT NULL,
    name TEXT,
    kind TEXT NOT NULL,
    summary TEXT,
    status TEXT,
    last_updated TEXT,
    path TEXT NOT NULL,
    content_hash TEXT,
    indexed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_entity_id ON entities(entity_id);
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);

-- FTS5 over ID, name and summary
CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
    entity_id, name, summary,
    content=entities,
    content_rowid=id
);

-- Triggers to keep FTS5 in sync
CREATE TRIGGER IF NOT EXISTS entities_ai AFTER INSERT ON entities BEGIN
    INSERT INTO entities_fts(rowid, entity_id, name, summary)
    VALUES (NEW.id, NEW.entity_id, NEW.name, NEW.summary);
END;

CREATE TRIGGER IF NOT EXISTS entities_ad AFTER DELETE ON entities BEGIN
    INSERT INTO entities_fts(entities_fts, rowid, entity_id, name, summary)
    VALUES ('delete', OLD.id, OLD.entity_id, OLD.name, OLD.summary);
END;

CREATE TRIGGER IF NOT EXISTS entities_au AFTER UPDATE ON entities BEGIN
    INSERT INTO entities_fts(entities_fts, rowid, entity_id, name, summary)
    VALUES ('delete', OLD.id, OLD.entity_id, OLD.name, OLD.summary);
    INSERT INTO entities_fts(rowid, entity_id, name, summary)
    VALUES (NEW.id, NEW.entity_id, NEW.name, NEW.summary);
END;
`

func GetSchema() string {
	return schemaSQL
}

func GetSchemaVersion() int {
	return SchemaVersion
}
