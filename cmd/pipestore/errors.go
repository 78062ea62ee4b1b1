package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/pipestore/types"
)

// CLIError is a user facing error with context and suggestions
type CLIError struct {
	Operation   string   // what failed, e.g. "update people"
	Cause       string   // short description of the problem
	Details     string   // technical details
	Suggestions []string // hints for the user
	Underlying  error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var msg strings.Builder

	if e.Operation != "" {
		msg.WriteString(fmt.Sprintf("Failed to %s", e.Operation))
	} else {
		msg.WriteString("Operation failed")
	}
	if e.Cause != "" {
		msg.WriteString(fmt.Sprintf(": %s", e.Cause))
	}
	if e.Details != "" {
		msg.WriteString(fmt.Sprintf(" (%s)", e.Details))
	}
	if len(e.Suggestions) > 0 {
		msg.WriteString("\n\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			msg.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}
	return msg.String()
}

func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewValidationError reports a malformed argument or flag
func NewValidationError(operation, field, value string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s: %q", field, value),
		Suggestions: suggestions,
	}
}

// NewStoreError explains a store failure in user terms
func NewStoreError(operation string, underlying error) *CLIError {
	cause := "store operation failed"
	var suggestions []string

	switch {
	case errors.Is(underlying, types.ErrInvalidStoredFormat):
		cause = "the collection file is not a valid document map"
		suggestions = append(suggestions, "Check that --storage-format and --ext match the file", "Inspect the file for manual edits")
	case errors.Is(underlying, types.ErrMissingStorageLocation):
		cause = "the collection directory does not exist"
		suggestions = append(suggestions, "Create the directory or point --dir somewhere else")
	case errors.Is(underlying, types.ErrInvalidFilterSpec):
		cause = "invalid filter"
		suggestions = append(suggestions,
			`Use the form "field op value", e.g. --where "score >= 80"`,
			"Operators: = != > >= < <= in, not in, match, between")
	case errors.Is(underlying, types.ErrInvalidSortDirection):
		cause = "invalid sort direction"
		suggestions = append(suggestions, `Use --sort "field:asc" or --sort "field:desc"`)
	case errors.Is(underlying, types.ErrUndefinedExtension):
		cause = "unknown extension"
	}

	details := ""
	if underlying != nil {
		details = underlying.Error()
	}
	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// WrapError wraps err with CLI context unless it already has some
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}
	return NewStoreError(operation, err)
}
