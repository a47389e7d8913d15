package database

import (
	"database/sql"
	stdlog "log"
	"time"

	"github.com/investmentmanagement137/portfolio-sub000/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// Well-known keys in the persistence gateway. Values are opaque bytes;
// the services decide the encoding.
const (
	KeyAnalysisPayload = "analysis_payload"
	KeyCostBasisRows   = "cost_basis_rows"
	KeySnapshotRows    = "holdings_snapshot_rows"
	KeyLastUpdated     = "last_updated"
	KeyUploadBundle    = "upload_bundle"
)

// InitDB opens (or creates) the sqlite store behind the key-value
// persistence gateway. Use ":memory:" in tests.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}
	DB = db

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := DB.Exec(createTableStatement); err != nil {
		stdlog.Fatalf("failed to create kv_store table: %v", err)
	}

	if logger.L != nil {
		logger.L.Info("Persistence gateway initialized", "databasePath", databasePath)
	} else {
		stdlog.Println("Persistence gateway initialized:", databasePath)
	}
}

// Put upserts a value. Writes are replace-only; there are no partial field
// updates at this layer.
func Put(key string, value []byte) error {
	_, err := DB.Exec(
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Get reads a value. A miss returns (nil, false, nil); absence is a valid
// state, not an error.
func Get(key string) ([]byte, bool, error) {
	var value []byte
	err := DB.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Delete removes a single key. Deleting an absent key is a no-op.
func Delete(key string) error {
	_, err := DB.Exec(`DELETE FROM kv_store WHERE key = ?`, key)
	return err
}

// Clear wipes the whole store.
func Clear() error {
	_, err := DB.Exec(`DELETE FROM kv_store`)
	return err
}
