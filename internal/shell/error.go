package shell

import (
	"errors"
	"fmt"
)

// ExitError carries the exit code an app asked the process to exit
// with.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("app exited with code %d", e.Code)
}

func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// ExitCode maps the error returned by a command to a process exit
// code. A nil error maps to 0, errors without an exit code to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return 1
}
