package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrArtifactLoad       = errors.New("artifact load failed")
	ErrInference          = errors.New("inference failed")
	ErrInvalidPayload     = errors.New("invalid request payload")
	ErrBackendUnavailable = errors.New("inference backend unavailable")
	ErrBackendInference   = errors.New("inference backend inference failed")
	ErrBackendProtocol    = errors.New("inference backend protocol failed")
)

// Violation reasons.
const (
	ReasonMissing    = "missing"
	ReasonNotNumeric = "not_numeric"
	ReasonOutOfRange = "out_of_range"
)

// Violation records why a single request field was rejected.
type Violation struct {
	Field  string
	Reason string
}

// Message is the client-facing text for the violation. The same wording is
// used for every reason.
func (v Violation) Message() string {
	return fmt.Sprintf(
		"The input number for %s is out of range. Please provide a value between the specified limits.",
		v.Field,
	)
}

// ValidationError lists every field of a request that failed validation.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for idx, violation := range e.Violations {
		parts[idx] = violation.Field + ": " + violation.Reason
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Fields returns the names of the rejected fields in request order.
func (e *ValidationError) Fields() []string {
	fields := make([]string, len(e.Violations))
	for idx, violation := range e.Violations {
		fields[idx] = violation.Field
	}
	return fields
}
