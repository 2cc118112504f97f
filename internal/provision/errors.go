package provision

import (
	"errors"
	"os/exec"
)

var (
	// ErrInsufficientPrivilege means the process is neither root nor able to
	// elevate without a password.
	ErrInsufficientPrivilege = errors.New("insufficient privilege")

	// ErrWrongDistribution means the host is not the supported distribution.
	ErrWrongDistribution = errors.New("wrong distribution")
)

// ExitCode maps a pipeline error to the process exit code: the failing
// external command's exit code when one exists, otherwise 1. A nil error is 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
