package sqlite

import "database/sql"

// schema sets up the local database. It runs on every open.
const schema = `
CREATE TABLE IF NOT EXISTS secrets (
    key TEXT PRIMARY KEY,
    nonce BLOB NOT NULL,
    ciphertext BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_snapshots (
    user_id TEXT PRIMARY KEY,
    id TEXT NOT NULL,
    payload TEXT NOT NULL,
    fetched_at INTEGER NOT NULL
);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
