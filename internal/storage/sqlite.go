// Package storage persists embedding bookkeeping in a local SQLite cache.
package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Item classes stored in embedding_metadata.
const (
	ClassFragment = "fragment"
	ClassPiece    = "piece"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path,
// creating parent directories as needed.
func OpenDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- One row per embedded item, used to detect text edited after embedding
		CREATE TABLE IF NOT EXISTS embedding_metadata (
			item_id TEXT NOT NULL,
			item_class TEXT NOT NULL,
			model_name TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			indexed_at INTEGER NOT NULL,
			PRIMARY KEY (item_id, item_class)
		);
	`

	_, err := db.Exec(schema)
	return err
}

// EmbeddingMetadata records what text an item was embedded from.
type EmbeddingMetadata struct {
	ItemID      string
	ItemClass   string // ClassFragment or ClassPiece
	ModelName   string
	ContentHash string // SHA256 of the embedded text
	IndexedAt   int64  // Unix timestamp
}

// ContentHash returns the hex SHA256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SaveEmbeddingMetadata saves or updates metadata for one item.
func (d *DB) SaveEmbeddingMetadata(meta EmbeddingMetadata) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO embedding_metadata (item_id, item_class, model_name, content_hash, indexed_at)
		VALUES (?, ?, ?, ?, ?)
	`, meta.ItemID, meta.ItemClass, meta.ModelName, meta.ContentHash, meta.IndexedAt)
	return err
}

// SaveEmbeddingMetadataBatch upserts many rows in a single transaction.
func (d *DB) SaveEmbeddingMetadataBatch(metas []EmbeddingMetadata) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO embedding_metadata (item_id, item_class, model_name, content_hash, indexed_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, meta := range metas {
		if _, err := stmt.Exec(meta.ItemID, meta.ItemClass, meta.ModelName, meta.ContentHash, meta.IndexedAt); err != nil {
			return fmt.Errorf("saving %s %s: %w", meta.ItemClass, meta.ItemID, err)
		}
	}

	return tx.Commit()
}

// GetEmbeddingMetadata retrieves metadata for one item.
// Returns nil, nil if the item has none.
func (d *DB) GetEmbeddingMetadata(itemID, itemClass string) (*EmbeddingMetadata, error) {
	var meta EmbeddingMetadata
	err := d.db.QueryRow(`
		SELECT item_id, item_class, model_name, content_hash, indexed_at
		FROM embedding_metadata
		WHERE item_id = ? AND item_class = ?
	`, itemID, itemClass).Scan(&meta.ItemID, &meta.ItemClass, &meta.ModelName, &meta.ContentHash, &meta.IndexedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &meta, nil
}

// ListEmbeddingMetadata returns all rows of a class keyed by item id.
func (d *DB) ListEmbeddingMetadata(itemClass string) (map[string]EmbeddingMetadata, error) {
	rows, err := d.db.Query(`
		SELECT item_id, item_class, model_name, content_hash, indexed_at
		FROM embedding_metadata
		WHERE item_class = ?
	`, itemClass)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]EmbeddingMetadata)
	for rows.Next() {
		var meta EmbeddingMetadata
		if err := rows.Scan(&meta.ItemID, &meta.ItemClass, &meta.ModelName, &meta.ContentHash, &meta.IndexedAt); err != nil {
			return nil, err
		}
		out[meta.ItemID] = meta
	}
	return out, rows.Err()
}

// ClearEmbeddingMetadata removes all embedding metadata.
func (d *DB) ClearEmbeddingMetadata() error {
	_, err := d.db.Exec("DELETE FROM embedding_metadata")
	return err
}

// CountEmbeddingMetadata returns the number of rows of a class,
// or of all classes if itemClass is empty.
func (d *DB) CountEmbeddingMetadata(itemClass string) (int, error) {
	var count int
	var err error
	if itemClass == "" {
		err = d.db.QueryRow("SELECT COUNT(*) FROM embedding_metadata").Scan(&count)
	} else {
		err = d.db.QueryRow("SELECT COUNT(*) FROM embedding_metadata WHERE item_class = ?", itemClass).Scan(&count)
	}
	return count, err
}
