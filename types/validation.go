package types

import (
	"fmt"
	"strings"
)

/*
ValidationResult collects all the problems found in user supplied input so
that they can be reported back in one pass. Validators never return error
for invalid input, they return result with Valid == false.
*/
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

func (r *ValidationResult) Addf(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Merge adds problems of "o" into "r", prefixing messages with "prefix" when it is not empty.
func (r *ValidationResult) Merge(prefix string, o *ValidationResult) {
	if o == nil {
		return
	}
	for _, e := range o.Errors {
		if prefix != "" {
			e = prefix + ": " + e
		}
		r.Addf("%s", e)
	}
}

/*
Err returns nil when the result is valid, *ValidationError otherwise.
*/
func (r *ValidationResult) Err(subject string) error {
	if r == nil || r.Valid {
		return nil
	}
	return &ValidationError{Subject: subject, Errors: append([]string(nil), r.Errors...)}
}

/*
ValidationError is returned by flows which must refuse to continue with
invalid user input. It is user error, never an internal defect.
*/
type ValidationError struct {
	Subject string
	Errors  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Subject, strings.Join(e.Errors, "; "))
}
