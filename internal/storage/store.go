// Package storage provides abstractions for the client's local persistence.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/splitwiser-client/internal/models"
)

// ErrNotFound is returned when a key or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// SecretStore holds small credentials in app-private storage.
// Implementations must not expose stored values to other applications.
type SecretStore interface {
	// GetSecret returns the value for key, or ErrNotFound.
	GetSecret(ctx context.Context, key string) (string, error)

	// PutSecret stores value under key, replacing any previous value.
	PutSecret(ctx context.Context, key, value string) error

	// DeleteSecret removes key. Deleting a missing key is not an error.
	DeleteSecret(ctx context.Context, key string) error
}

// Snapshot is the last set of groups fetched for a user.
type Snapshot struct {
	ID        string
	UserID    string
	Groups    []models.GroupDetails
	FetchedAt time.Time
}

// SnapshotStore caches fetched group details so balances can be shown offline.
type SnapshotStore interface {
	// SaveSnapshot replaces the snapshot for snapshot.UserID.
	// The ID and FetchedAt fields are populated by the store when empty.
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error

	// LoadSnapshot returns the snapshot for userID, or ErrNotFound.
	LoadSnapshot(ctx context.Context, userID string) (*Snapshot, error)
}

// Store combines every local persistence concern.
// This abstraction allows swapping storage backends (SQLite, in-memory)
// without changing the service layer.
type Store interface {
	SecretStore
	SnapshotStore

	// Close releases any resources held by the store.
	Close() error
}
