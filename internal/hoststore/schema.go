package hoststore

// Schema creates the tables the exporter reads and writes. The host
// application normally owns trees; Migrate is for local stores.
const Schema = `
CREATE TABLE IF NOT EXISTS trees (
    id BIGINT PRIMARY KEY,
    post_type TEXT NOT NULL DEFAULT 'arbre',
    status TEXT NOT NULL DEFAULT 'publish',
    title TEXT NOT NULL DEFAULT '',
    tree_number TEXT,
    easting TEXT,
    northing TEXT,
    permalink TEXT NOT NULL DEFAULT '',
    modified_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS export_manifest (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const selectTrees = `
SELECT id, title, tree_number, easting, northing, permalink, modified_at
FROM trees
WHERE post_type = ? AND status = ?`

const selectPublishedTrees = selectTrees + ` ORDER BY id`

const selectTreeByID = selectTrees + ` AND id = ?`

const selectManifest = `SELECT value FROM export_manifest WHERE name = ?`

const upsertManifest = `
INSERT INTO export_manifest (name, value) VALUES (?, ?)
ON CONFLICT (name) DO UPDATE SET value = excluded.value`

const manifestKey = "last_generation"
