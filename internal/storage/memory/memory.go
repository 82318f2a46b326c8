// Package memory provides an in-process implementation of storage.Store.
// Nothing survives process exit, which makes it suitable for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitwiser-client/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is a thread-safe map-backed store.
type Store struct {
	mu        sync.RWMutex
	secrets   map[string]string
	snapshots map[string][]byte
	meta      map[string]storage.Snapshot
}

// New creates an empty store.
func New() *Store {
	return &Store{
		secrets:   make(map[string]string),
		snapshots: make(map[string][]byte),
		meta:      make(map[string]storage.Snapshot),
	}
}

func (s *Store) GetSecret(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.secrets[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (s *Store) PutSecret(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets[key] = value
	return nil
}

func (s *Store) DeleteSecret(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.secrets, key)
	return nil
}

// SaveSnapshot stores an encoded copy so later mutation by the caller does
// not leak into the cache.
func (s *Store) SaveSnapshot(_ context.Context, snapshot *storage.Snapshot) error {
	if snapshot.UserID == "" {
		return fmt.Errorf("snapshot user id is required")
	}
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

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshot.UserID] = payload
	s.meta[snapshot.UserID] = storage.Snapshot{ID: snapshot.ID, UserID: snapshot.UserID, FetchedAt: snapshot.FetchedAt}
	return nil
}

func (s *Store) LoadSnapshot(_ context.Context, userID string) (*storage.Snapshot, error) {
	s.mu.RLock()
	payload, ok := s.snapshots[userID]
	meta := s.meta[userID]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrNotFound
	}
	snapshot := meta
	if err := json.Unmarshal(payload, &snapshot.Groups); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *Store) Close() error {
	return nil
}
