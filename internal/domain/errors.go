package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrSessionNotFound is returned when an assessment session does not exist or has expired.
	ErrSessionNotFound = errors.New("assessment session not found")
	// ErrPersonalInfoRequired is returned when answers arrive before the respondent was accepted.
	ErrPersonalInfoRequired = errors.New("personal information required before answering")
	// ErrOutOfOrderAnswer indicates an answer for a question other than the current one.
	ErrOutOfOrderAnswer = errors.New("answer does not match the current question")
	// ErrSessionAlreadyCompleted is returned for mutations after the last question was answered.
	ErrSessionAlreadyCompleted = errors.New("assessment session already completed")
	// ErrInvalidAnswerValue indicates a value that is not one of the question's options.
	ErrInvalidAnswerValue = errors.New("invalid answer value")
	// ErrIncompleteSubmission aborts report composition when required data is missing.
	ErrIncompleteSubmission = errors.New("incomplete submission")
	// ErrCatalogNotFound indicates the catalog could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrInvalidCatalog indicates a catalog that violates its structural invariants.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrDeliveryFailure wraps mail and spreadsheet failures.
	ErrDeliveryFailure = errors.New("delivery failure")
)

// ValidationError carries per-field messages for rejected respondent or booking input.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

// Add records a message for field, keeping the first one.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool { return e == nil || len(e.Fields) == 0 }

// OrNil returns e when it has fields and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
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
	return "validation failed: " + strings.Join(parts, "; ")
}
