package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmynk/splitwiser-client/internal/models"
	"github.com/mmynk/splitwiser-client/internal/storage"
)

// RefreshTokenKey is the secret store key holding the refresh token.
const RefreshTokenKey = "splitwiser.refresh_token"

// TokenStore owns the session token pair.
//
// The access token lives in memory only. The refresh token is also written to
// the secret store so a restarted process can mint a new access token.
// Listeners registered with Subscribe are called after every change.
type TokenStore struct {
	secrets storage.SecretStore
	logger  *slog.Logger

	mu        sync.RWMutex
	pair      models.TokenPair
	listeners map[int]func(models.TokenPair)
	nextID    int
}

// NewTokenStore creates an empty store persisting through secrets.
// A nil secrets store keeps the refresh token in memory only.
func NewTokenStore(secrets storage.SecretStore, logger *slog.Logger) *TokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{
		secrets:   secrets,
		logger:    logger,
		listeners: make(map[int]func(models.TokenPair)),
	}
}

// Load restores the persisted refresh token. The access token stays empty
// until the next refresh.
func (s *TokenStore) Load(ctx context.Context) error {
	if s.secrets == nil {
		return nil
	}
	refresh, err := s.secrets.GetSecret(ctx, RefreshTokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load refresh token: %w", err)
	}

	s.mu.Lock()
	s.pair = models.TokenPair{RefreshToken: refresh}
	pair := s.pair
	s.mu.Unlock()

	s.notify(pair)
	return nil
}

// Set updates the token pair. Empty fields keep their previous values, so a
// refresh response without a rotated refresh token retains the old one.
// The in-memory pair is updated even when persisting fails.
func (s *TokenStore) Set(ctx context.Context, update models.TokenPair) error {
	s.mu.Lock()
	if update.AccessToken != "" {
		s.pair.AccessToken = update.AccessToken
	}
	rotated := update.RefreshToken != "" && update.RefreshToken != s.pair.RefreshToken
	if update.RefreshToken != "" {
		s.pair.RefreshToken = update.RefreshToken
	}
	pair := s.pair
	s.mu.Unlock()

	var err error
	if rotated && s.secrets != nil {
		if err = s.secrets.PutSecret(ctx, RefreshTokenKey, pair.RefreshToken); err != nil {
			s.logger.Warn("Failed to persist refresh token", "error", err)
			err = fmt.Errorf("failed to persist refresh token: %w", err)
		}
	}

	s.notify(pair)
	return err
}

// Clear drops both tokens and removes the persisted refresh token.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.pair = models.TokenPair{}
	s.mu.Unlock()

	var err error
	if s.secrets != nil {
		if err = s.secrets.DeleteSecret(ctx, RefreshTokenKey); err != nil {
			s.logger.Warn("Failed to delete refresh token", "error", err)
			err = fmt.Errorf("failed to delete refresh token: %w", err)
		}
	}

	s.notify(models.TokenPair{})
	return err
}

// Tokens returns a copy of the current pair.
func (s *TokenStore) Tokens() models.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// AccessToken returns the current access token, or "".
func (s *TokenStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.AccessToken
}

// RefreshToken returns the current refresh token, or "".
func (s *TokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair.RefreshToken
}

// Subscribe registers fn to be called with the new pair after every change.
// The returned function removes the subscription.
func (s *TokenStore) Subscribe(fn func(models.TokenPair)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *TokenStore) notify(pair models.TokenPair) {
	s.mu.RLock()
	fns := make([]func(models.TokenPair), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(pair)
	}
}
