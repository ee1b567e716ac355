package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteExecution matches every *RemoteExecutionError.
	ErrRemoteExecution = errors.New("remote execution failed")

	// ErrPoolClosed is returned when submitting to a closed Pool.
	ErrPoolClosed = errors.New("executor pool closed")
)

// RemoteExecutionError reports that one or more dispatched units could not be
// resolved. Unit is the index of the first failed unit in dispatch order.
type RemoteExecutionError struct {
	Unit   int
	Failed int
	Total  int
	Err    error
}

// Error implements the error interface.
func (e *RemoteExecutionError) Error() string {
	return fmt.Sprintf("remote execution failed: %d/%d units failed (first: unit %d): %v",
		e.Failed, e.Total, e.Unit, e.Err)
}

// Unwrap returns the first unit's failure.
func (e *RemoteExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRemoteExecution.
func (e *RemoteExecutionError) Is(target error) bool {
	return target == ErrRemoteExecution
}

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}
