package retry

import (
	"errors"
	"fmt"
)

var ErrStopped = errors.New("retry controller stopped")

// NoRetry marks an error as permanent. The chain stops at the current
// attempt and the wrapped error is reported as the final result.
//
//	return retry.NoRetry(fmt.Errorf("missing locator: %w", err))
func NoRetry(err error) error {
	if err == nil {
		return nil
	}
	return noRetryError{err: err}
}

// IsNoRetry reports whether err is wrapped with NoRetry.
func IsNoRetry(err error) bool {
	var e noRetryError
	return errors.As(err, &e)
}

type noRetryError struct{ err error }

func (e noRetryError) Error() string { return fmt.Sprintf("no-retry: %v", e.err) }
func (e noRetryError) Unwrap() error { return e.err }

// PanicError is returned when the work panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }
