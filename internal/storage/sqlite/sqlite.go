// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitwiser-client/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// keyFileName holds generated key material when no secret key is configured.
const keyFileName = ".splitwiser.key"

// SQLiteStore implements storage.Store using SQLite.
// Secrets are sealed before they are written.
type SQLiteStore struct {
	db     *sql.DB
	sealer *sealer
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
//
// secretKey seeds the key used to seal secrets. When it is empty, random key
// material is generated once and kept next to the database, readable only by
// the current user.
func New(dbPath, secretKey string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	material := []byte(secretKey)
	if secretKey == "" {
		var err error
		material, err = loadOrCreateKeyFile(filepath.Join(dir, keyFileName))
		if err != nil {
			return nil, err
		}
	}
	s, err := newSealer(material)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, sealer: s}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetSecret reads and opens the secret stored under key.
func (s *SQLiteStore) GetSecret(ctx context.Context, key string) (string, error) {
	var nonce, ciphertext []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT nonce, ciphertext FROM secrets WHERE key = ?",
		key,
	).Scan(&nonce, &ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get secret: %w", err)
	}

	plaintext, err := s.sealer.open(key, nonce, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// PutSecret seals value and upserts it under key.
func (s *SQLiteStore) PutSecret(ctx context.Context, key, value string) error {
	nonce, ciphertext, err := s.sealer.seal(key, []byte(value))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO secrets (key, nonce, ciphertext, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET nonce = excluded.nonce, ciphertext = excluded.ciphertext, updated_at = excluded.updated_at`,
		key, nonce, ciphertext, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	return nil
}

// DeleteSecret removes key if present.
func (s *SQLiteStore) DeleteSecret(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM secrets WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the cached groups for snapshot.UserID.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snapshot *storage.Snapshot) error {
	if snapshot.UserID == "" {
		return fmt.Errorf("snapshot user id is required")
	}
	// Generate IDs if not set
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now()
	}

	payload, err := json.Marshal(snapshot.Groups)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO group_snapshots (user_id, id, payload, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET id = excluded.id, payload = excluded.payload, fetched_at = excluded.fetched_at`,
		snapshot.UserID, snapshot.ID, string(payload), snapshot.FetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the cached groups for userID.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context, userID string) (*storage.Snapshot, error) {
	snapshot := &storage.Snapshot{UserID: userID}
	var payload string
	var fetchedAt int64

	err := s.db.QueryRowContext(ctx,
		"SELECT id, payload, fetched_at FROM group_snapshots WHERE user_id = ?",
		userID,
	).Scan(&snapshot.ID, &payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &snapshot.Groups); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	snapshot.FetchedAt = time.Unix(fetchedAt, 0)
	return snapshot, nil
}
