// Package provision implements the provisioning step-runner: an ordered
// list of named, guarded, verifiable steps executed strictly sequentially
// against the detected host variant.
package provision

import (
	"context"
	"time"

	"github.com/provisio-sh/provisio/pkg/command"
	"github.com/provisio-sh/provisio/pkg/config"
	"github.com/provisio-sh/provisio/pkg/platform"
	"github.com/provisio-sh/provisio/pkg/preflight"
)

// Status is the outcome of one step in one run.
type Status string

const (
	// StatusSkipped means the step's guard rejected the variant, its
	// idempotency check found nothing to do, or it was disabled.
	StatusSkipped Status = "skipped"
	// StatusSucceeded means the action ran and verification passed.
	StatusSucceeded Status = "succeeded"
	// StatusFailedRetriesExhausted means the action failed after its full
	// retry budget.
	StatusFailedRetriesExhausted Status = "failed-retries-exhausted"
	// StatusFailedFatal means the action reported success but the system
	// was not in the expected state afterwards.
	StatusFailedFatal Status = "failed-verify"
	// StatusInterrupted means the operator cancelled the run while the
	// step was in flight.
	StatusInterrupted Status = "interrupted"
	// StatusDryRun means the step was previewed, not executed.
	StatusDryRun Status = "dry-run"
)

// RunContext carries the immutable facts of one run. It is resolved before
// the first step executes and steps only ever read it; there is no ambient
// global state.
type RunContext struct {
	Principal preflight.Principal
	Variant   platform.Variant
	WorkDir   string
	Runner    command.Runner
	Config    *config.Config
}

// Step is a single unit of provisioning work. Steps are defined once, as
// data, and never mutated at run time.
type Step struct {
	// Name uniquely identifies the step in logs, overrides and reports.
	Name        string
	Description string

	// Guard decides whether the step applies to the detected variant.
	// A nil guard means the step runs on every variant.
	Guard func(platform.Variant) bool

	// Check is the idempotency probe: when it reports true the desired
	// state already holds and the step is skipped. Optional.
	Check func(ctx context.Context, rc *RunContext) (bool, string)

	// Action performs the actual work, delegating to external
	// collaborators through rc.Runner.
	Action func(ctx context.Context, rc *RunContext) error

	// Verify confirms the action had its intended effect. Only invoked
	// after a successful action. Optional.
	Verify func(ctx context.Context, rc *RunContext) error

	// Retryable actions run through the retry policy with the configured
	// budget; non-retryable actions get exactly one attempt.
	Retryable bool

	// Critical failures abort the remaining run; non-critical failures
	// are reported and the run continues.
	Critical bool
}

// AppliesTo evaluates the step's guard for a variant.
func (s Step) AppliesTo(v platform.Variant) bool {
	return s.Guard == nil || s.Guard(v)
}

// ExecutionRecord is the per-step outcome, one per step per run.
type ExecutionRecord struct {
	Step     string
	Status   Status
	Attempts int
	Err      error
	Reason   string
	Duration time.Duration
}
