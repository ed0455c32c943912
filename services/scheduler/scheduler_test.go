package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricewatcher/pkg/errors"
	"sjsage522/pricewatcher/services/worker"
)

// countingRunner counts cycles; when gate is set every cycle blocks until it is closed
type countingRunner struct {
	runs    atomic.Int32
	started chan struct{}
	gate    chan struct{}
}

func (r *countingRunner) RunCycle(ctx context.Context) worker.Summary {
	r.runs.Add(1)
	if r.started != nil {
		select {
		case r.started <- struct{}{}:
		default:
		}
	}
	if r.gate != nil {
		<-r.gate
	}
	return worker.Summary{CycleID: "c", StartedAt: time.Now(), Checked: 1}
}

func TestStartTwiceLeavesOneTimer(t *testing.T) {
	s := New(context.Background(), &countingRunner{})
	defer s.Stop()

	require.NoError(t, s.Start(5*time.Minute))
	require.NoError(t, s.Start(5*time.Minute))

	assert.Eventually(t, func() bool { return s.loops.Load() == 1 }, time.Second, 5*time.Millisecond)

	status := s.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 5*time.Minute, status.Interval)
}

func TestStartReplacesInterval(t *testing.T) {
	s := New(context.Background(), &countingRunner{})
	defer s.Stop()

	require.NoError(t, s.StartMinutes(5))
	require.NoError(t, s.StartMinutes(10))

	assert.Equal(t, 10*time.Minute, s.Status().Interval)
	assert.Eventually(t, func() bool { return s.loops.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStartRejectsBadInterval(t *testing.T) {
	s := New(context.Background(), &countingRunner{})

	err := s.Start(0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
	assert.Error(t, s.StartMinutes(-1))
	assert.False(t, s.Status().Running)
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(context.Background(), &countingRunner{})

	assert.NotPanics(t, s.Stop)

	require.NoError(t, s.Start(time.Minute))
	s.Stop()
	assert.NotPanics(t, s.Stop)

	assert.False(t, s.Status().Running)
	assert.Eventually(t, func() bool { return s.loops.Load() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRunOnceWhileIdleStaysIdle(t *testing.T) {
	runner := &countingRunner{}
	s := New(context.Background(), runner)

	summary := s.RunOnce(context.Background())

	assert.Equal(t, 1, summary.Checked)
	assert.Equal(t, int32(1), runner.runs.Load())
	status := s.Status()
	assert.False(t, status.Running)
	assert.Zero(t, status.Interval)
	assert.False(t, status.LastRun.IsZero())
}

func TestRunOnceWhileRunningKeepsTimer(t *testing.T) {
	s := New(context.Background(), &countingRunner{})
	defer s.Stop()

	require.NoError(t, s.Start(time.Hour))
	s.RunOnce(context.Background())

	status := s.Status()
	assert.True(t, status.Running)
	assert.Equal(t, time.Hour, status.Interval)
}

func TestTicksRunCycles(t *testing.T) {
	runner := &countingRunner{}
	s := New(context.Background(), runner)

	require.NoError(t, s.Start(10*time.Millisecond))
	assert.Eventually(t, func() bool { return runner.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestTickDuringInFlightCycleIsSkipped(t *testing.T) {
	runner := &countingRunner{started: make(chan struct{}, 1), gate: make(chan struct{})}
	s := New(context.Background(), runner)

	require.NoError(t, s.Start(10*time.Millisecond))

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle never started")
	}

	assert.Eventually(t, func() bool { return s.Status().Skipped >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), runner.runs.Load(), "no overlapping cycle may start")
	assert.Equal(t, int32(1), s.Status().InFlight)

	close(runner.gate)
	s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Equal(t, int32(0), s.Status().InFlight)
}

func TestStopDoesNotPreemptInFlightCycle(t *testing.T) {
	runner := &countingRunner{started: make(chan struct{}, 1), gate: make(chan struct{})}
	s := New(context.Background(), runner)

	require.NoError(t, s.Start(10*time.Millisecond))
	<-runner.started

	s.Stop()
	assert.False(t, s.Status().Running)
	assert.Equal(t, int32(1), s.Status().InFlight, "cycle keeps running after stop")

	close(runner.gate)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.Equal(t, "c", s.Status().LastSummary.CycleID)
}

func TestShutdownHonorsContext(t *testing.T) {
	runner := &countingRunner{started: make(chan struct{}, 1), gate: make(chan struct{})}
	s := New(context.Background(), runner)

	go s.RunOnce(context.Background())
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx), context.DeadlineExceeded)

	close(runner.gate)
}
