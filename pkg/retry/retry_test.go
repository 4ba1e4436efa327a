package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, WithMaxAttempts(5), WithDelay(time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "k failures then success must report k+1 attempts")
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	boom := errors.New("persistent error")
	attempts, err := Do(context.Background(), func() error {
		calls++
		return boom
	}, WithMaxAttempts(3), WithDelay(time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts, "exhaustion must report exactly the attempt budget")
	assert.Equal(t, 3, calls, "operation must never run more than MaxAttempts times")
}

func TestDo_ConstantDelay(t *testing.T) {
	var gaps []time.Duration
	last := time.Now()
	calls := 0

	_, err := Do(context.Background(), func() error {
		now := time.Now()
		if calls > 0 {
			gaps = append(gaps, now.Sub(last))
		}
		last = now
		calls++
		return errors.New("always fails")
	}, WithMaxAttempts(3), WithDelay(20*time.Millisecond))

	require.Error(t, err)
	require.Len(t, gaps, 2)
	for _, gap := range gaps {
		assert.GreaterOrEqual(t, gap, 20*time.Millisecond)
		assert.Less(t, gap, 200*time.Millisecond, "delay should stay constant, not grow")
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	attempts, err := Do(ctx, func() error {
		calls++
		return errors.New("error")
	}, WithMaxAttempts(5), WithDelay(10*time.Millisecond))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_FatalErrorNotRetried(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), func() error {
		calls++
		return Fatal(errors.New("unrecoverable"))
	}, WithMaxAttempts(5), WithDelay(time.Millisecond))

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_ZeroBudgetClampedToOne(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), func() error {
		calls++
		return nil
	}, WithMaxAttempts(0))

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestFatalNil(t *testing.T) {
	assert.Nil(t, Fatal(nil))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(errors.New("ordinary")))
}
