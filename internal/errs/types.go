package errs

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError carries per-field constraint violations found at the boundary.
type ValidationError struct {
	Fields map[string]string
}

// NewValidation returns an empty ValidationError ready to collect fields.
func NewValidation() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a violation for field. The first message per field wins.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// OrNil returns e if any field was recorded, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation: " + strings.Join(parts, "; ")
}

// DispatchError reports a failed hand-off to the e-mail provider. Callers may retry.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string { return fmt.Sprintf("dispatch: %v", e.Err) }

// Unwrap exposes the provider error.
func (e *DispatchError) Unwrap() error { return e.Err }

// MismatchError reports a wrong verification code and how many attempts remain.
// Remaining == 0 means the session was cleared and a new code must be requested.
type MismatchError struct {
	Remaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v (%d attempts remaining)", ErrCodeMismatch, e.Remaining)
}

// Is makes errors.Is(err, ErrCodeMismatch) hold for any MismatchError.
func (e *MismatchError) Is(target error) bool { return target == ErrCodeMismatch }
