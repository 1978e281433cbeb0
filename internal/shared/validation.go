package shared

import (
	"fmt"
	"strings"
)

// ValidationError is a single field-addressed validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors accumulates field-scoped validation failures so a caller
// can fix every problem in one round trip. The zero value is ready to use.
//
// It implements error but should only be returned when HasErrors reports true.
type ValidationErrors struct {
	errs []ValidationError
}

// Add records a failure for the given field.
func (v *ValidationErrors) Add(field, message string) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: message})
}

// Addf records a failure with a formatted message.
func (v *ValidationErrors) Addf(field, format string, args ...any) {
	v.Add(field, fmt.Sprintf(format, args...))
}

// AddChild merges another set of errors under a field prefix.
func (v *ValidationErrors) AddChild(prefix string, child *ValidationErrors) {
	if child == nil {
		return
	}
	for _, e := range child.errs {
		field := prefix
		if e.Field != "" {
			field = prefix + "." + e.Field
		}
		v.errs = append(v.errs, ValidationError{Field: field, Message: e.Message})
	}
}

// HasErrors reports whether any failure has been recorded.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.errs) > 0
}

// Errors returns the accumulated failures in insertion order.
func (v *ValidationErrors) Errors() []ValidationError {
	return v.errs
}

func (v *ValidationErrors) Error() string {
	if len(v.errs) == 0 {
		return "validation passed"
	}
	parts := make([]string, len(v.errs))
	for i, e := range v.errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// OrNil returns v as an error when failures were recorded, nil otherwise.
func (v *ValidationErrors) OrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}
