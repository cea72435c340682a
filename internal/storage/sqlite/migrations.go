package sqlite

import "database/sql"

// schema is applied on every open. Name keys carry the lowercased name so
// uniqueness is case-insensitive.
const schema = `
CREATE TABLE IF NOT EXISTS segments (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    name_key TEXT NOT NULL UNIQUE,
    price_per_transaction REAL NOT NULL,
    cost_per_transaction REAL NOT NULL,
    monthly_volume REAL NOT NULL,
    volume_growth REAL NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    metadata TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS models (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    name_key TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    parameters TEXT NOT NULL,
    segments TEXT NOT NULL,
    total_revenue REAL NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_models_updated_at ON models(updated_at);
`

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
