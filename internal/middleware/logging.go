// Package middleware provides http.RoundTripper middleware for API calls.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls f(req).
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Logging returns a RoundTripper that logs every API call with its method,
// path, status, request ID and duration. Request bodies and credentials are
// never logged.
func Logging(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		requestID := GetRequestID(req.Context())
		if requestID != "" && req.Header.Get(RequestIDHeader) == "" {
			req = req.Clone(req.Context())
			req.Header.Set(RequestIDHeader, requestID)
		}

		resp, err := next.RoundTrip(req)

		duration := time.Since(start).Milliseconds()
		switch {
		case err != nil:
			logger.Error("HTTP error",
				"method", req.Method,
				"path", req.URL.Path,
				"error", err,
				"request_id", requestID,
				"duration_ms", duration,
			)
		case resp.StatusCode >= 400:
			logger.Warn("HTTP error",
				"method", req.Method,
				"path", req.URL.Path,
				"status", resp.StatusCode,
				"request_id", requestID,
				"duration_ms", duration,
			)
		default:
			logger.Debug("HTTP ok",
				"method", req.Method,
				"path", req.URL.Path,
				"status", resp.StatusCode,
				"request_id", requestID,
				"duration_ms", duration,
			)
		}
		return resp, err
	})
}
