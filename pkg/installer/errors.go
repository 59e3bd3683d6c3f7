package installer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedVersion is returned if the requested stable version is not
	// in the recognized list.
	ErrUnsupportedVersion = errors.New("unsupported texbld version")

	// ErrUnexpectedHTTPStatusCode is returned if an artifact download response
	// has an unexpected status code.
	ErrUnexpectedHTTPStatusCode = errors.New("unexpected HTTP status code")
)

// SubprocessError is returned when an external provisioning or install
// command exits non-zero. It carries the command and exit code so the failure
// can be reported verbatim.
type SubprocessError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *SubprocessError) Error() string {
	return fmt.Sprintf("subprocess %q exited with status %d", e.Command, e.ExitCode)
}
