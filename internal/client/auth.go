package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mmynk/splitwiser-client/internal/auth"
	"github.com/mmynk/splitwiser-client/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         json.RawMessage `json:"user"`
}

// Login authenticates with email and password and starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	return c.authenticate(ctx, "/auth/login/email", loginRequest{Email: email, Password: password})
}

// Signup creates an account and starts a session.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	return c.authenticate(ctx, "/auth/signup/email", signupRequest{Name: name, Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*models.User, error) {
	data, err := c.do(ctx, &request{method: http.MethodPost, path: path, route: path, body: body, public: true})
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, fmt.Errorf("%s response is missing tokens", path)
	}
	user, err := c.normalizeUser(resp.User)
	if err != nil {
		// Fall back to the identity carried by the access token.
		claims, cerr := auth.ParseClaims(resp.AccessToken)
		if cerr != nil {
			return nil, fmt.Errorf("%s response: %w", path, err)
		}
		user = &models.User{ID: claims.SubjectID(), Email: claims.Email}
	}

	// A persistence failure only costs the session its survival across
	// restarts; the tokens are usable in memory.
	if err := c.tokens.Set(ctx, models.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); err != nil {
		c.logger.Warn("Session will not survive restart", "error", err)
	}
	c.logger.Info("Session started", "user_id", user.ID)
	return user, nil
}

// Logout ends the session locally. The API has no logout endpoint; the
// refresh token simply stops being used.
func (c *Client) Logout(ctx context.Context) error {
	return c.tokens.Clear(ctx)
}

// exchangeRefreshToken calls /auth/refresh. Refresh calls are not retried:
// the server may rotate the refresh token on each use.
func (c *Client) exchangeRefreshToken(ctx context.Context) error {
	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		return ErrNoRefreshToken
	}

	data, err := c.do(ctx, &request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		route:  "/auth/refresh",
		body:   refreshRequest{RefreshToken: refreshToken},
		public: true,
	})
	if err != nil {
		return err
	}

	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("refresh response has no access token")
	}

	if err := c.tokens.Set(ctx, models.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); err != nil {
		c.logger.Warn("Rotated refresh token not persisted", "error", err)
	}
	return nil
}
