package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/mmynk/splitwiser-client/internal/auth"
	"github.com/mmynk/splitwiser-client/internal/models"
)

// SessionService starts, resumes and ends sessions.
type SessionService struct {
	api    SessionAPI
	tokens *auth.TokenStore
	logger *slog.Logger
}

// NewSessionService creates a session service over api, sharing tokens with
// the client that implements it.
func NewSessionService(api SessionAPI, tokens *auth.TokenStore, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{api: api, tokens: tokens, logger: logger}
}

// Login authenticates with email and password.
func (s *SessionService) Login(ctx context.Context, email, password string) (*models.User, error) {
	s.logger.Info("Login request", "email", email)

	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	user, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.logger.Error("Login failed", "email", email, "error", err)
		return nil, err
	}
	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return user, nil
}

// Signup creates an account and logs in.
func (s *SessionService) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	s.logger.Info("Signup request", "email", email)

	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	user, err := s.api.Signup(ctx, name, email, password)
	if err != nil {
		s.logger.Error("Signup failed", "email", email, "error", err)
		return nil, err
	}
	s.logger.Info("User registered successfully", "user_id", user.ID)
	return user, nil
}

// Logout ends the session and forgets the persisted refresh token.
func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	s.logger.Info("User logged out")
	return nil
}

// Resume restores a session from the persisted refresh token and returns
// the user ID. The access token is never persisted, so a refresh is always
// needed after a restart.
func (s *SessionService) Resume(ctx context.Context) (string, error) {
	if err := s.tokens.Load(ctx); err != nil {
		return "", err
	}
	if s.tokens.RefreshToken() == "" {
		return "", ErrNotLoggedIn
	}
	if err := s.api.Refresh(ctx); err != nil {
		return "", fmt.Errorf("failed to resume session: %w", err)
	}
	return s.CurrentUserID()
}

// CurrentUserID reads the user ID from the access token.
func (s *SessionService) CurrentUserID() (string, error) {
	token := s.tokens.AccessToken()
	if token == "" {
		return "", ErrNotLoggedIn
	}
	claims, err := auth.ParseClaims(token)
	if err != nil {
		return "", err
	}
	return claims.SubjectID(), nil
}

// CurrentUser returns what the access token says about the user.
func (s *SessionService) CurrentUser() (*models.User, error) {
	token := s.tokens.AccessToken()
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	claims, err := auth.ParseClaims(token)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: claims.SubjectID(), Email: claims.Email}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidInput, email)
	}
	return nil
}
