package chunk

import (
	"fmt"
	"strings"
)

// FieldError reports a single validation rule violated by a named
// configuration field.
type FieldError struct {
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return "chunk: " + e.Msg
}

// fieldErrorf builds a FieldError whose message names the offending field.
func fieldErrorf(field, format string, args ...any) *FieldError {
	return &FieldError{
		Field: field,
		Msg:   fmt.Sprintf(format, args...),
	}
}

// ValidationErrors aggregates every rule violation found during a single
// construction attempt.
type ValidationErrors struct {
	errs []error
}

// NewValidationErrors wraps the collected violations, returning nil when
// the list is empty so callers can return it directly.
func NewValidationErrors(errs []error) error {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &ValidationErrors{errs: filtered}
}

func (e *ValidationErrors) Error() string {
	if len(e.errs) == 1 {
		return e.errs[0].Error()
	}
	msgs := make([]string, len(e.errs))
	for i, err := range e.errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e.errs), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual violations to errors.Is and errors.As.
func (e *ValidationErrors) Unwrap() []error {
	return e.errs
}

// All returns the individual violations in the order they were found.
func (e *ValidationErrors) All() []error {
	out := make([]error, len(e.errs))
	copy(out, e.errs)
	return out
}
