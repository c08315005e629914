package jira

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the Jira REST API. The body is kept
// for diagnostics since Jira puts its error messages there.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API returned %d: %s", e.StatusCode, e.Body)
}

// AuthError means the remote rejected the configured credentials. It is
// fatal: callers must not retry and must not continue the run.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("jira rejected credentials (%d): %s", e.StatusCode, e.Body)
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// retryable reports whether a request error is worth retrying: transport
// failures, rate limiting, and server-side errors. Auth rejections and
// other 4xx responses are permanent.
func retryable(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	// Transport-level failure (connection reset, timeout, DNS).
	return true
}
