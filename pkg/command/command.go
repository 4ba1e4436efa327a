// Package command wraps external process execution for provisioning steps.
// It distinguishes commands that could not be started (missing binary,
// permission problem) from commands that ran and exited non-zero.
package command

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os/exec"
	"strings"

	"github.com/provisio-sh/provisio/pkg/errors"
	"github.com/provisio-sh/provisio/pkg/logging"
	"github.com/rs/zerolog"
)

// stderrTailLimit bounds how much stderr is carried into error details.
const stderrTailLimit = 2048

// Runner executes external commands on behalf of provisioning steps.
type Runner interface {
	// Run executes a command, streaming nothing back; the error carries
	// the exit code and a stderr tail when the command ran and failed.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes a command and returns its trimmed stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)

	// RunAs executes a command as another user. The privilege switch is
	// delegated to runuser; provisio itself runs as root.
	RunAs(ctx context.Context, username string, name string, args ...string) error

	// Lookup reports whether a program is resolvable on PATH.
	Lookup(name string) bool
}

// SystemRunner is the production Runner backed by os/exec.
type SystemRunner struct {
	logger zerolog.Logger
	// Optional sink for child stdout; nil discards it.
	stdout io.Writer
}

// NewSystemRunner creates a Runner that executes real processes.
func NewSystemRunner() *SystemRunner {
	return &SystemRunner{
		logger: logging.GetLogger("command"),
	}
}

// Run implements Runner.
func (r *SystemRunner) Run(ctx context.Context, name string, args ...string) error {
	logging.LogCommand(name, args)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return r.classify(name, args, &stderr, err)
}

// Output implements Runner.
func (r *SystemRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	logging.LogCommand(name, args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err := r.classify(name, args, &stderr, err); err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

// RunAs implements Runner.
func (r *SystemRunner) RunAs(ctx context.Context, username string, name string, args ...string) error {
	full := append([]string{"-u", username, "--", name}, args...)
	return r.Run(ctx, "runuser", full...)
}

// Lookup implements Runner.
func (r *SystemRunner) Lookup(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// classify turns an exec error into the start-vs-exit taxonomy.
func (r *SystemRunner) classify(name string, args []string, stderr *bytes.Buffer, err error) error {
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		tail := stderrTail(stderr)
		r.logger.Debug().
			Str("command", name).
			Strs("args", args).
			Int("exitCode", exitErr.ExitCode()).
			Str("stderr", tail).
			Msg("Command exited non-zero")

		return errors.Wrapf(err, errors.ErrCommandExit, "%s exited with status %d", name, exitErr.ExitCode()).
			WithDetail("exitCode", exitErr.ExitCode()).
			WithDetail("stderr", tail)
	}

	r.logger.Debug().
		Str("command", name).
		Err(err).
		Msg("Command could not be started")

	return errors.Wrapf(err, errors.ErrCommandStart, "could not start %s", name)
}

// ExitCode extracts the exit code detail from a command error.
// The second return is false when the command never ran.
func ExitCode(err error) (int, bool) {
	details := errors.GetErrorDetails(err)
	if details == nil {
		return 0, false
	}
	code, ok := details["exitCode"].(int)
	return code, ok
}

// Failed reports whether the command ran at all, as opposed to failing
// to start.
func Failed(err error) bool {
	return errors.IsErrorCode(err, errors.ErrCommandExit)
}

// NotStarted reports whether the command could not be started.
func NotStarted(err error) bool {
	return errors.IsErrorCode(err, errors.ErrCommandStart)
}

func stderrTail(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}
