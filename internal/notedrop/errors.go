package notedrop

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyText     = errors.New("note text is empty")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrAlreadySynced = errors.New("note already synced")
)

// TransportError is a network-level failure reaching the sync target:
// connection refused, DNS failure, timeout. Retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notion transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is a non-success response from the sync target. Retryable;
// RetryAfter carries the service's Retry-After hint when it sent one.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion request failed: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("notion request failed: status=%d message=%s", e.StatusCode, e.Message)
}

// IsRetryable reports whether a push failure is eligible for another attempt.
// Anything outside the transport/remote taxonomy aborts the retry budget.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}
