package errors

import "errors"

// CommandError represents an error that occurred during command execution,
// storing the arguments that produced it and the intended process exit code.
type CommandError struct {
	ExitCode    int
	CommonError string
	Args        interface{}
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// NewCommandError creates a new CommandError instance, encapsulating args and the error message.
func NewCommandError(args interface{}, err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Args:        args,
	}
}

// ExitCodeOf extracts the exit code from an error chain. Non-command errors
// map to a generic failure exit code of 1.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return 1
}
