package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a fetch failure.
type Kind string

// Failure kinds carried by Error.
const (
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindStatus     Kind = "status"
	KindCancelled  Kind = "cancelled"
)

// ErrCancelled marks a fetch abandoned at a cancellation checkpoint.
var ErrCancelled = errors.New("fetch cancelled")

// Error is the classified failure returned after the final attempt.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Attempts   int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d) after %d attempts", e.URL, e.Kind, e.StatusCode, e.Attempts)
	}
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s after %d attempts: %v", e.URL, e.Kind, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s after %d attempts", e.URL, e.Kind, e.Attempts)
}

// Unwrap supports errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCancelled reports whether err stems from a cancellation checkpoint.
func IsCancelled(err error) bool {
	if errors.Is(err, ErrCancelled) {
		return true
	}
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindCancelled
}

func classifyKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindConnection
}
