package client

import (
	"errors"
	"fmt"
	"net"
)

// ErrStaleResponse marks a response that arrived after a newer request was
// issued on the same session. Stale responses are discarded, never displayed.
var ErrStaleResponse = errors.New("stale response discarded")

// RequestError wraps a failed backend call with enough context to decide
// whether to retry and what to show the user.
type RequestError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Retryable reports whether a single retry is worth attempting: transport
// failures and 5xx responses are; 4xx responses are not.
func (e *RequestError) Retryable() bool {
	if e.StatusCode >= 500 {
		return true
	}
	if e.StatusCode >= 400 {
		return false
	}
	var netErr net.Error
	if errors.As(e.Err, &netErr) {
		return true
	}
	return e.Err != nil
}
