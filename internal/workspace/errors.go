package workspace

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned when an operation requires a signed-in
// user and none is present. The operation performs no store calls.
var ErrNotAuthenticated = errors.New("not authenticated")

// ValidationError reports caller-supplied data violating a constraint,
// e.g. more than MaxDraftTasks bundled tasks. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// PartialFailureError reports a two-phase operation whose first phase
// persisted and whose second did not, leaving the store in the
// inconsistent state described by Completed/Failed.
type PartialFailureError struct {
	Op        string
	Completed string
	Failed    string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s partially failed: %s, but %s: %v", e.Op, e.Completed, e.Failed, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
