package cmd

import "fmt"

// Exit codes for fetchform CLI
const (
	// ExitSuccess indicates every request got a non-error response
	ExitSuccess = 0

	// ExitRequestFailure indicates a response with status 400 or above
	ExitRequestFailure = 1

	// ExitParseError indicates an invalid request document
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error or timeout
	ExitNetworkError = 4

	// ExitResolutionError indicates a form field could not be resolved
	ExitResolutionError = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code out of a command. reported is set
// when the error was already printed by a formatter.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) *exitError {
	return &exitError{code: code, err: err}
}
