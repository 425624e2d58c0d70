package cli

import (
	"github.com/schoolboyqueue/spectrace/internal/cli/shared"
)

// Exit codes for the spectrace CLI (re-exported from shared).
// These codes support programmatic composition and CI gating.
const (
	// ExitSuccess indicates the command ran and found no issues.
	ExitSuccess = shared.ExitSuccess

	// ExitUsageError indicates bad arguments or an unreadable file system;
	// no partial report is produced.
	ExitUsageError = shared.ExitUsageError

	// ExitValidationFailed indicates the run completed and found issues
	// (validation FAIL, ambiguous resolution).
	ExitValidationFailed = shared.ExitValidationFailed
)

// NewExitError creates a new exit error with the given code (re-exported).
func NewExitError(code int) error {
	return shared.NewExitError(code)
}

// ExitCode returns the exit code from an error (re-exported).
func ExitCode(err error) int {
	return shared.ExitCode(err)
}
