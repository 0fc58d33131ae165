package errors

import "fmt"

// TransitionDetails is attached to CodeInvalidTransition errors.
type TransitionDetails struct {
	Entity     string   `json:"entity"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Violations []string `json:"violations,omitempty"`
}

// InvalidTransition builds the error returned when a state machine refuses a move.
func InvalidTransition(entity, from, to string, violations ...string) *Error {
	return New(CodeInvalidTransition, fmt.Sprintf("cannot transition %s from %s to %s", entity, from, to)).
		WithDetails(TransitionDetails{
			Entity:     entity,
			From:       from,
			To:         to,
			Violations: violations,
		})
}

// Violations returns the rule violations carried by a transition error.
func Violations(err error) []string {
	typed := As(err)
	if typed == nil {
		return nil
	}
	if details, ok := typed.details.(TransitionDetails); ok {
		return details.Violations
	}
	return nil
}

// TransitionTarget returns the requested status of an invalid transition
// error, or "" for any other error.
func TransitionTarget(err error) string {
	typed := As(err)
	if typed == nil {
		return ""
	}
	if details, ok := typed.details.(TransitionDetails); ok {
		return details.To
	}
	return ""
}

// InvalidArgument is a validation failure on a single named field.
func InvalidArgument(field, message string) *Error {
	return New(CodeValidation, message).WithDetails(map[string]string{"field": field})
}
