package commands

import (
	"github.com/provisio-sh/provisio/pkg/errors"
)

// Process exit codes. One code per fatal category so operators and fleet
// tooling can tell outcomes apart without parsing output.
const (
	ExitOK = 0
	// ExitPrecondition covers validation, detection and configuration
	// failures: nothing was mutated.
	ExitPrecondition = 1
	// ExitProvisioning means a critical step failed and the run aborted.
	ExitProvisioning = 2
	// ExitInterrupted mirrors the shell convention of 128+SIGINT.
	ExitInterrupted = 130
)

// ExitCode maps an error from command execution to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch errors.GetErrorCode(err) {
	case errors.ErrInterrupted:
		return ExitInterrupted
	case errors.ErrStepAction, errors.ErrStepVerify:
		return ExitProvisioning
	default:
		return ExitPrecondition
	}
}
