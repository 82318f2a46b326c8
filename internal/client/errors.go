package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired is matched by errors that require the user to log in
	// again.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoRefreshToken is returned when a refresh is needed but no refresh
	// token is held.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Transient reports whether the status indicates a server-side failure worth
// retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// NetworkError means no response was received, either because the transport
// failed or because the circuit breaker rejected the call.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// SessionExpiredError is returned when a 401 could not be recovered by
// refreshing. It matches ErrSessionExpired, and errors.As yields the
// original 401 as a *StatusError.
type SessionExpiredError struct {
	// Cause is why the refresh failed.
	Cause error
	// Response is the 401 that triggered the refresh.
	Response *StatusError
}

func (e *SessionExpiredError) Error() string {
	if e.Cause == nil {
		return ErrSessionExpired.Error()
	}
	return fmt.Sprintf("%s: %v", ErrSessionExpired, e.Cause)
}

func (e *SessionExpiredError) Unwrap() []error {
	errs := []error{ErrSessionExpired}
	if e.Response != nil {
		errs = append(errs, e.Response)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// IsStatus reports whether err carries an API response with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
