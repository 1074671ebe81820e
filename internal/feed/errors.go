package feed

import (
	"errors"
	"fmt"
)

// ErrAllSourcesFailed is returned when no enabled source produced a
// result. The returned error also wraps each source's failure.
var ErrAllSourcesFailed = errors.New("all event sources failed")

// ValidationError reports a request rejected before any source was
// queried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// sourceError attaches the failing source and call to err.
type sourceError struct {
	kind SourceKind
	call string
	err  error
}

func (e *sourceError) Error() string {
	return fmt.Sprintf("%s source %s: %v", e.kind, e.call, e.err)
}

func (e *sourceError) Unwrap() error { return e.err }
