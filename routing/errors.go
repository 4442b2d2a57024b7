package routing

import (
	"errors"
	"fmt"
)

var (
	// ErrParse matches any *ParseError.
	ErrParse = errors.New("routing decision parse error")

	// ErrRouting matches any *RoutingError.
	ErrRouting = errors.New("routing decision references unknown participant")

	// ErrValidation matches any *ValidationError.
	ErrValidation = errors.New("routing decision failed validation")
)

// ParseError indicates the output did not contain a well-formed decision.
type ParseError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("routing: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("routing: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// RoutingError indicates the decision named a participant that is not
// registered.
type RoutingError struct {
	Raw         string
	Participant string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing: unknown participant %q", e.Participant)
}

func (e *RoutingError) Is(target error) bool {
	return target == ErrRouting
}

// ValidationError indicates the decision is well-formed but inconsistent.
type ValidationError struct {
	Raw    string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("routing: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RawPayload returns the raw decision payload carried by any routing error.
func RawPayload(err error) (string, bool) {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Raw, true
	}
	var routingErr *RoutingError
	if errors.As(err, &routingErr) {
		return routingErr.Raw, true
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Raw, true
	}
	return "", false
}
