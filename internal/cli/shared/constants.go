// Package shared provides constants and helpers used across CLI subfiles.
// This package has no dependencies on other CLI packages to avoid circular
// imports.
package shared

import "fmt"

// Command group IDs for organizing help output
const (
	GroupValidation    = "validation"
	GroupIdentifiers   = "identifiers"
	GroupContent       = "content"
	GroupConfiguration = "configuration"
)

// Exit codes for CLI commands. These support programmatic composition and
// CI gating: 0 means the validation (or lookup) succeeded, 2 means issues
// were found, 1 means the command could not run at all.
const (
	ExitSuccess          = 0
	ExitUsageError       = 1
	ExitValidationFailed = 2
)

// exitError is a custom error type that carries an exit code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("exit code %d", e.code)
}

// NewExitError creates a new exit error with the given code.
func NewExitError(code int) error {
	return &exitError{code: code}
}

// NewExitErrorf creates an exit error carrying both a code and a message.
func NewExitErrorf(code int, format string, args ...any) error {
	return &exitError{code: code, msg: fmt.Sprintf(format, args...)}
}

// ExitCode returns the exit code from an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if e, ok := err.(*exitError); ok {
		return e.code
	}
	return ExitUsageError
}

// Silent reports whether the error carries only an exit code and no message
// worth printing (the command already rendered its report).
func Silent(err error) bool {
	e, ok := err.(*exitError)
	return ok && e.msg == ""
}
