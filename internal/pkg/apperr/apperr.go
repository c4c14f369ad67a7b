// Package apperr holds the client's error taxonomy. Every failure that
// crosses a package boundary is one of these four kinds; callers match
// with errors.As and decide whether to degrade, surface, or reject.
package apperr

import (
	"fmt"
)

// ConnectionError is a handshake or connect failure on the streaming
// transport. The session degrades instead of crashing.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("not connected to %s", e.Addr)
	}
	return fmt.Sprintf("failed to connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// FetchError is a malformed or non-2xx REST response. StatusCode and Body
// are kept for diagnostics; an empty room is never reported this way.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Reason     string
}

func (e *FetchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("failed to fetch %s: unexpected status code %d", e.URL, e.StatusCode)
}

// ValidationError rejects an outbound command before any network call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// AuthError means no credential was available where one was required.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("auth failed: %s", e.Reason)
	}
	return fmt.Sprintf("auth failed: %s: %v", e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
