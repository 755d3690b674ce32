// File: internal/executor/errors.go
package executor

import (
	"fmt"
	"time"
)

// ValidationError marks a step that is malformed beyond replay: a missing or
// unknown event, or no locator information at all. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid step: %s", e.Reason)
}

// LocateTimeoutError reports an element that never resolved within the find
// budget. Depending on policy it becomes a failure or a skip.
type LocateTimeoutError struct {
	Timeout  time.Duration
	Attempts int
}

func (e *LocateTimeoutError) Error() string {
	return fmt.Sprintf("element not found within %v (%d attempts)", e.Timeout, e.Attempts)
}

// ActionFailedError reports a transport that accepted the dispatch but
// signalled failure.
type ActionFailedError struct {
	Detail string
}

func (e *ActionFailedError) Error() string {
	if e.Detail == "" {
		return "action dispatch reported failure"
	}
	return fmt.Sprintf("action dispatch reported failure: %s", e.Detail)
}

// TransportUnavailableError reports that no channel exists to dispatch the
// action. Always fatal to the step.
type TransportUnavailableError struct{}

func (e *TransportUnavailableError) Error() string {
	return "no transport available to dispatch action"
}
