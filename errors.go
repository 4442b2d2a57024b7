package relay

import (
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/relay/participant"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("invalid workflow configuration")

	// ErrUnknownCorrelation matches every *UnknownCorrelationError.
	ErrUnknownCorrelation = errors.New("unknown correlation id")

	// ErrConcurrentSuspension matches every *ConcurrentSuspensionError.
	ErrConcurrentSuspension = errors.New("execution already has a pending suspension")

	// ErrInvalidTransition is returned when an incoming event does not apply
	// to the current execution status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrExecutionNotFound is returned for unknown execution ids.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionExists is returned when starting an execution whose id is
	// already live.
	ErrExecutionExists = errors.New("execution already exists")

	// ErrExecutionActive is returned when releasing an execution that has not
	// reached a terminal status.
	ErrExecutionActive = errors.New("execution is not finished")

	// ErrWorkflowMismatch is returned when a checkpoint belongs to a
	// different workflow than the one resuming it.
	ErrWorkflowMismatch = errors.New("checkpoint belongs to a different workflow")
)

// ConfigurationError is returned by Build. It is never produced once a
// workflow has been built.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnknownCorrelationError is returned when a response names a checkpoint
// that does not exist or was already consumed.
type UnknownCorrelationError struct {
	CorrelationID string
}

func (e *UnknownCorrelationError) Error() string {
	return fmt.Sprintf("unknown correlation id %q", e.CorrelationID)
}

func (e *UnknownCorrelationError) Is(target error) bool {
	return target == ErrUnknownCorrelation
}

// ConcurrentSuspensionError is returned when a participant asks for input
// while another request of the same execution is still pending.
type ConcurrentSuspensionError struct {
	ExecutionID string
	Pending     string
	Requester   string
}

func (e *ConcurrentSuspensionError) Error() string {
	return fmt.Sprintf("execution %s: %s requested input while %s is pending",
		e.ExecutionID, e.Requester, e.Pending)
}

func (e *ConcurrentSuspensionError) Is(target error) bool {
	return target == ErrConcurrentSuspension
}

// InvocationError wraps a failure returned by a participant. The execution
// state is left as it was before the call and the call is not retried.
type InvocationError struct {
	Participant string
	Phase       participant.Phase
	Err         error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("participant %s (%s) failed: %v", e.Participant, e.Phase, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
