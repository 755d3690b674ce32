// File: internal/waiter/errors.go
package waiter

import (
	"fmt"
	"time"
)

// WaitTimeoutError reports a condition that never held within its budget.
type WaitTimeoutError struct {
	Timeout time.Duration
	Polls   int
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("condition not satisfied after %v (%d polls)", e.Timeout, e.Polls)
}

// AbortError reports a wait cancelled through its context before the
// condition held or the timeout elapsed.
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("wait aborted: %v", e.Cause)
}

func (e *AbortError) Unwrap() error { return e.Cause }
