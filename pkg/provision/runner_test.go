package provision

import (
	"context"
	"testing"
	"time"

	"github.com/provisio-sh/provisio/pkg/config"
	"github.com/provisio-sh/provisio/pkg/errors"
	"github.com/provisio-sh/provisio/pkg/platform"
	"github.com/provisio-sh/provisio/pkg/preflight"
	"github.com/provisio-sh/provisio/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRunContext(t *testing.T, variant platform.Variant) (*RunContext, *testutil.FakeRunner) {
	t.Helper()
	runner := testutil.NewFakeRunner()
	cfg, err := config.LoadFrom("")
	require.NoError(t, err)
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.Delay = time.Millisecond

	rc := &RunContext{
		Principal: preflight.Principal{Username: "alice", UID: 1000, GID: 1000, Home: t.TempDir()},
		Variant:   variant,
		WorkDir:   t.TempDir(),
		Runner:    runner,
		Config:    cfg,
	}
	return rc, runner
}

func failingStep(name string, critical bool, retryable bool, fails *int) Step {
	return Step{
		Name:      name,
		Critical:  critical,
		Retryable: retryable,
		Action: func(ctx context.Context, rc *RunContext) error {
			*fails++
			return errors.New(errors.ErrCommandExit, "always fails")
		},
	}
}

func okStep(name string, ran *bool) Step {
	return Step{
		Name: name,
		Action: func(ctx context.Context, rc *RunContext) error {
			*ran = true
			return nil
		},
	}
}

func TestRunnerGuardSkips(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantPlasma)

	var guardedRan, openRan bool
	steps := []Step{
		{
			Name:  "gnome-only",
			Guard: func(v platform.Variant) bool { return v == platform.VariantGnome },
			Action: func(ctx context.Context, rc *RunContext) error {
				guardedRan = true
				return nil
			},
			Verify: func(ctx context.Context, rc *RunContext) error {
				guardedRan = true
				return nil
			},
		},
		okStep("unguarded", &openRan),
	}

	records, err := NewRunner(false).Run(context.Background(), steps, rc)

	require.NoError(t, err)
	require.Len(t, records, 2, "exactly one record per step")

	assert.Equal(t, StatusSkipped, records[0].Status)
	assert.False(t, guardedRan, "neither action nor verify may run for a guarded-out step")

	assert.Equal(t, StatusSucceeded, records[1].Status)
	assert.True(t, openRan)
}

func TestRunnerNonCriticalFailureContinues(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	fails := 0
	var nextRan bool
	steps := []Step{
		failingStep("flaky", false, true, &fails),
		okStep("next", &nextRan),
	}

	records, err := NewRunner(false).Run(context.Background(), steps, rc)

	require.NoError(t, err, "non-critical failure must not abort the run")
	require.Len(t, records, 2)

	assert.Equal(t, StatusFailedRetriesExhausted, records[0].Status)
	assert.Equal(t, 3, records[0].Attempts, "full retry budget must be spent")
	assert.Equal(t, 3, fails)
	assert.True(t, errors.IsErrorCode(records[0].Err, errors.ErrStepAction))

	assert.True(t, nextRan)
	assert.Equal(t, StatusSucceeded, records[1].Status)
}

func TestRunnerCriticalFailureAborts(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	fails := 0
	var nextRan bool
	steps := []Step{
		failingStep("essential", true, false, &fails),
		okStep("never-reached", &nextRan),
	}

	records, err := NewRunner(false).Run(context.Background(), steps, rc)

	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStepAction))
	require.Len(t, records, 1, "aborted run stops producing records")
	assert.Equal(t, 1, records[0].Attempts, "non-retryable step gets exactly one attempt")
	assert.False(t, nextRan)
}

func TestRunnerVerifyFailureIsNeverSuccess(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	steps := []Step{
		{
			Name:   "lying-action",
			Action: func(ctx context.Context, rc *RunContext) error { return nil },
			Verify: func(ctx context.Context, rc *RunContext) error {
				return errors.New(errors.ErrStepVerify, "binary not on PATH")
			},
		},
	}

	records, err := NewRunner(false).Run(context.Background(), steps, rc)

	require.NoError(t, err, "non-critical verify failure reports and continues")
	require.Len(t, records, 1)
	assert.Equal(t, StatusFailedFatal, records[0].Status)
	assert.True(t, errors.IsErrorCode(records[0].Err, errors.ErrStepVerify))
}

func TestRunnerCriticalVerifyFailureAborts(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	var nextRan bool
	steps := []Step{
		{
			Name:     "critical-lying-action",
			Critical: true,
			Action:   func(ctx context.Context, rc *RunContext) error { return nil },
			Verify: func(ctx context.Context, rc *RunContext) error {
				return errors.New(errors.ErrStepVerify, "wrong state")
			},
		},
		okStep("never-reached", &nextRan),
	}

	records, err := NewRunner(false).Run(context.Background(), steps, rc)

	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStepVerify))
	require.Len(t, records, 1)
	assert.False(t, nextRan)
}

func TestRunnerVerifyOnlyAfterSuccessfulAction(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	var verified bool
	fails := 0
	step := failingStep("broken", false, false, &fails)
	step.Verify = func(ctx context.Context, rc *RunContext) error {
		verified = true
		return nil
	}

	_, err := NewRunner(false).Run(context.Background(), []Step{step}, rc)

	require.NoError(t, err)
	assert.False(t, verified, "verify must not run when the action failed")
}

func TestRunnerCheckSkipsSatisfiedStep(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	var ran bool
	steps := []Step{
		{
			Name: "already-done",
			Check: func(ctx context.Context, rc *RunContext) (bool, string) {
				return true, "already installed"
			},
			Action: func(ctx context.Context, rc *RunContext) error {
				ran = true
				return nil
			},
		},
	}

	records, err := NewRunner(false).Run(context.Background(), steps, rc)

	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, records[0].Status)
	assert.Equal(t, "already installed", records[0].Reason)
	assert.False(t, ran)
}

func TestRunnerDisabledByOverride(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)
	disabled := false
	rc.Config.Steps = map[string]config.Override{
		"toggled-off": {Enabled: &disabled},
	}

	var ran bool
	records, err := NewRunner(false).Run(context.Background(),
		[]Step{okStep("toggled-off", &ran)}, rc)

	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, records[0].Status)
	assert.False(t, ran)
}

func TestRunnerCriticalityOverride(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)
	critical := true
	rc.Config.Steps = map[string]config.Override{
		"flaky": {Critical: &critical},
	}

	fails := 0
	var nextRan bool
	steps := []Step{
		failingStep("flaky", false, false, &fails),
		okStep("next", &nextRan),
	}

	_, err := NewRunner(false).Run(context.Background(), steps, rc)

	require.Error(t, err, "override flipped the step to critical")
	assert.False(t, nextRan)
}

func TestRunnerDryRun(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	var ran bool
	records, err := NewRunner(true).Run(context.Background(),
		[]Step{okStep("real-work", &ran)}, rc)

	require.NoError(t, err)
	assert.Equal(t, StatusDryRun, records[0].Status,
		"a dry run must be tellable apart from a guard or check skip")
	assert.Equal(t, "dry run", records[0].Reason)
	assert.False(t, ran)
}

func TestRunnerContextCancellation(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	ctx, cancel := context.WithCancel(context.Background())
	var secondRan bool
	steps := []Step{
		{
			Name: "cancels-mid-run",
			Action: func(ctx context.Context, rc *RunContext) error {
				cancel()
				return nil
			},
		},
		okStep("after-cancel", &secondRan),
	}

	records, err := NewRunner(false).Run(ctx, steps, rc)

	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInterrupted))
	require.Len(t, records, 1)
	assert.False(t, secondRan)
}

func TestRunnerInterruptMidCriticalStep(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	ctx, cancel := context.WithCancel(context.Background())
	var nextRan bool
	steps := []Step{
		{
			Name:      "in-flight",
			Critical:  true,
			Retryable: true,
			Action: func(ctx context.Context, rc *RunContext) error {
				cancel()
				return ctx.Err()
			},
		},
		okStep("never-reached", &nextRan),
	}

	records, err := NewRunner(false).Run(ctx, steps, rc)

	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInterrupted),
		"an interrupt surfacing through a critical action is an interruption, not a step failure")
	assert.False(t, errors.IsErrorCode(err, errors.ErrStepAction))

	require.Len(t, records, 1)
	assert.Equal(t, StatusInterrupted, records[0].Status)
	assert.Equal(t, 1, records[0].Attempts, "no retries after the context is cancelled")
	assert.False(t, nextRan)
}

func TestRunnerInterruptMidNonCriticalStep(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	ctx, cancel := context.WithCancel(context.Background())
	var nextRan bool
	steps := []Step{
		{
			Name: "in-flight",
			Action: func(ctx context.Context, rc *RunContext) error {
				cancel()
				return ctx.Err()
			},
		},
		okStep("never-reached", &nextRan),
	}

	records, err := NewRunner(false).Run(ctx, steps, rc)

	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInterrupted))
	require.Len(t, records, 1, "an interrupt aborts even when the step is not critical")
	assert.Equal(t, StatusInterrupted, records[0].Status)
	assert.False(t, nextRan)
}

func TestRunnerRetrySucceedsMidBudget(t *testing.T) {
	rc, _ := testRunContext(t, platform.VariantGnome)

	calls := 0
	steps := []Step{
		{
			Name:      "flaky-network",
			Retryable: true,
			Action: func(ctx context.Context, rc *RunContext) error {
				calls++
				if calls < 2 {
					return errors.New(errors.ErrCommandExit, "transient")
				}
				return nil
			},
		},
	}

	records, err := NewRunner(false).Run(context.Background(), steps, rc)

	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, records[0].Status)
	assert.Equal(t, 2, records[0].Attempts)
}
