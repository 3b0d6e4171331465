package store

// migration is one schema step. Steps run in order inside a single
// transaction and are recorded in schema_version.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "catalog snapshot tables", schemaV1},
	{2, "lookup indexes and export history", schemaV2},
}

// currentSchemaVersion is the version after every migration has run
var currentSchemaVersion = migrations[len(migrations)-1].version

// Schema v1 - catalog snapshot tables
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pieces (
  id INTEGER PRIMARY KEY,
  display_id INTEGER NOT NULL,
  title TEXT NOT NULL,
  composer TEXT,
  genre TEXT,
  readiness TEXT NOT NULL,
  owner_id INTEGER DEFAULT 0,
  created_at TEXT,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS setlists (
  id INTEGER PRIMARY KEY,
  display_id INTEGER NOT NULL,
  title TEXT,
  date TEXT,
  location TEXT,
  owner_id INTEGER DEFAULT 0
);

-- piece_id is not a foreign key: items may outlive their piece
CREATE TABLE IF NOT EXISTS setlist_items (
  id INTEGER PRIMARY KEY,
  setlist_id INTEGER NOT NULL REFERENCES setlists(id) ON DELETE CASCADE,
  piece_id INTEGER NOT NULL,
  position INTEGER NOT NULL,
  UNIQUE (setlist_id, position),
  UNIQUE (setlist_id, piece_id)
);
`

// Schema v2 - lookup indexes and export history
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_pieces_readiness ON pieces(readiness);
CREATE INDEX IF NOT EXISTS idx_pieces_composer ON pieces(composer);
CREATE INDEX IF NOT EXISTS idx_setlist_items_piece ON setlist_items(piece_id);

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  exported_at DATETIME NOT NULL,
  pieces INTEGER NOT NULL,
  setlists INTEGER NOT NULL,
  items INTEGER NOT NULL
);
`
