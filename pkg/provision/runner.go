package provision

import (
	"context"
	"time"

	"github.com/provisio-sh/provisio/pkg/config"
	"github.com/provisio-sh/provisio/pkg/errors"
	"github.com/provisio-sh/provisio/pkg/logging"
	"github.com/provisio-sh/provisio/pkg/retry"
	"github.com/rs/zerolog"
)

// Runner executes steps strictly sequentially. Provisioning order carries
// real dependencies (repository key before repository use, shell install
// before chsh), so no parallelism is ever introduced.
type Runner struct {
	logger zerolog.Logger
	dryRun bool
}

// NewRunner creates a step runner.
func NewRunner(dryRun bool) *Runner {
	return &Runner{
		logger: logging.GetLogger("runner"),
		dryRun: dryRun,
	}
}

// Run executes the steps in list order against the run context and returns
// one ExecutionRecord per step. The returned error is non-nil when the run
// was aborted: by a critical step failure, a critical verification failure,
// or context cancellation. Already-collected records are always returned.
func (r *Runner) Run(ctx context.Context, steps []Step, rc *RunContext) ([]ExecutionRecord, error) {
	records := make([]ExecutionRecord, 0, len(steps))
	overrides := rc.Config.Steps

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return records, errors.Wrap(err, errors.ErrInterrupted, "provisioning interrupted")
		}

		record := r.runStep(ctx, step, rc, overrides[step.Name])
		records = append(records, record)

		// An interrupt aborts regardless of the step's criticality.
		if record.Status == StatusInterrupted {
			return records, errors.Wrap(record.Err, errors.ErrInterrupted, "provisioning interrupted")
		}

		if record.Err != nil && r.isAbort(step, overrides[step.Name]) {
			return records, errors.Wrapf(record.Err, stepErrorCode(record.Status),
				"critical step %s failed, aborting", step.Name)
		}
	}

	return records, nil
}

func (r *Runner) runStep(ctx context.Context, step Step, rc *RunContext, override config.Override) ExecutionRecord {
	logger := r.logger.With().Str("step", step.Name).Logger()
	start := time.Now()

	record := ExecutionRecord{Step: step.Name}

	finish := func() ExecutionRecord {
		record.Duration = time.Since(start)
		r.logOutcome(logger, record)
		return record
	}

	if override.Enabled != nil && !*override.Enabled {
		record.Status = StatusSkipped
		record.Reason = "disabled by configuration"
		return finish()
	}

	if !step.AppliesTo(rc.Variant) {
		record.Status = StatusSkipped
		record.Reason = "not applicable to " + rc.Variant.String()
		return finish()
	}

	if r.dryRun {
		record.Status = StatusDryRun
		record.Reason = "dry run"
		return finish()
	}

	if step.Check != nil {
		if satisfied, reason := step.Check(ctx, rc); satisfied {
			record.Status = StatusSkipped
			record.Reason = reason
			return finish()
		}
	}

	logger.Info().Str("description", step.Description).Msg("Running step")

	attempts, err := r.runAction(ctx, step, rc)
	record.Attempts = attempts
	if err != nil {
		// A failure with a cancelled context is the operator's
		// interrupt surfacing through the action, not a step defect.
		if ctx.Err() != nil {
			record.Status = StatusInterrupted
			record.Err = errors.Wrapf(err, errors.ErrInterrupted, "step %s interrupted", step.Name)
			return finish()
		}
		record.Status = StatusFailedRetriesExhausted
		record.Err = errors.Wrapf(err, errors.ErrStepAction, "step %s action failed", step.Name)
		return finish()
	}

	if step.Verify != nil {
		if err := step.Verify(ctx, rc); err != nil {
			// The action claimed success but the system is not in the
			// expected state. Never silently treated as success.
			record.Status = StatusFailedFatal
			record.Err = errors.Wrapf(err, errors.ErrStepVerify, "step %s verification failed", step.Name)
			return finish()
		}
	}

	record.Status = StatusSucceeded
	return finish()
}

func (r *Runner) runAction(ctx context.Context, step Step, rc *RunContext) (int, error) {
	if !step.Retryable {
		err := step.Action(ctx, rc)
		return 1, err
	}

	return retry.Do(ctx, func() error {
		return step.Action(ctx, rc)
	},
		retry.WithMaxAttempts(rc.Config.Retry.MaxAttempts),
		retry.WithDelay(rc.Config.Retry.Delay),
	)
}

// isAbort applies the per-step criticality policy, honoring overrides.
// Verification failures on critical steps abort too: continuing past a
// critical step whose effect is absent would run later steps on a false
// premise.
func (r *Runner) isAbort(step Step, override config.Override) bool {
	critical := step.Critical
	if override.Critical != nil {
		critical = *override.Critical
	}
	return critical
}

func (r *Runner) logOutcome(logger zerolog.Logger, record ExecutionRecord) {
	event := logger.Info()
	switch record.Status {
	case StatusSkipped, StatusDryRun:
		event = logger.Info().Str("reason", record.Reason)
	case StatusFailedRetriesExhausted, StatusFailedFatal:
		event = logger.Warn().Err(record.Err)
	case StatusInterrupted:
		event = logger.Warn().Err(record.Err).Str("reason", "operator interrupt")
	}
	event.
		Str("status", string(record.Status)).
		Int("attempts", record.Attempts).
		Dur("duration", record.Duration).
		Msg("Step finished")
}

func stepErrorCode(status Status) errors.ErrorCode {
	if status == StatusFailedFatal {
		return errors.ErrStepVerify
	}
	return errors.ErrStepAction
}
