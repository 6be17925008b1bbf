package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("*/30 * * * *"))
	assert.NoError(t, ValidateCronSchedule("0 3 * * 1"))
	assert.Error(t, ValidateCronSchedule("every minute"))
	assert.Error(t, ValidateCronSchedule("0 0 * * * *"), "seconds field is not accepted")
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewEnrichmentRetryScheduler("nope", func(context.Context) error { return nil })
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRunTime())
}

func TestStartStop(t *testing.T) {
	s := NewEnrichmentRetryScheduler("*/30 * * * *", func(context.Context) error { return nil })
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")
	assert.True(t, s.IsRunning())

	next := s.NextRunTime()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewEnrichmentRetryScheduler("0 * * * *", func(context.Context) error { return nil })
	require.NoError(t, s.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestRunNow(t *testing.T) {
	var calls atomic.Int32
	s := NewEnrichmentRetryScheduler("0 * * * *", func(ctx context.Context) error {
		calls.Add(1)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return errors.New("logged, not fatal")
	})

	s.RunNow()
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestRunSweep_SkipsOverlap(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	s := NewEnrichmentRetryScheduler("0 * * * *", func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})

	s.RunNow()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.runSweep()
	close(release)
	assert.Equal(t, int32(1), calls.Load())
}
