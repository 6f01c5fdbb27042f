package services

import (
	"errors"
	"fmt"
)

var (
	ErrAgentUnavailable    = errors.New("matching agent unavailable")
	ErrMatchingUnavailable = errors.New("matching unavailable")
	ErrWorkflowCancelled   = errors.New("workflow cancelled")
	ErrWorkflowTimeout     = errors.New("workflow timed out")
	ErrQueueFull           = errors.New("workflow queue full")
)

// ValidationError reports a bad request parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
