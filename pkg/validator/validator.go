// Package validator provides field-level request validation. Handlers build
// a rule list per request and call Apply; the resulting ValidationErrors
// carry field names so the API can return per-field messages.
package validator

import (
	"fmt"
	"strings"
)

// ValidationError is a single failed check on a named field.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors collects every failed check for a request.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns field name -> messages for JSON error bodies.
func (ve ValidationErrors) Fields() map[string][]string {
	if len(ve) == 0 {
		return nil
	}
	out := make(map[string][]string, len(ve))
	for _, err := range ve {
		out[err.Field] = append(out[err.Field], err.Message)
	}
	return out
}

// Rule is a single named check.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// Apply runs every rule and returns the accumulated ValidationErrors, or nil
// when all checks pass.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if !rule.Check() {
			errs = append(errs, rule.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
