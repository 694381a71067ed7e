package pricing

import "sync/atomic"

// CancelSignal is the shared cancellation flag for one run. It has exactly
// one writer (the external cancel request) and many readers (every in-flight
// task), so an atomic flag is the whole synchronization story. The flag is
// never reset; a new run gets a new signal.
type CancelSignal struct {
	cancelled atomic.Bool
}

// NewCancelSignal returns an unset signal.
func NewCancelSignal() *CancelSignal {
	return &CancelSignal{}
}

// Cancel sets the flag. Idempotent.
func (s *CancelSignal) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (s *CancelSignal) Cancelled() bool {
	if s == nil {
		return false
	}
	return s.cancelled.Load()
}
