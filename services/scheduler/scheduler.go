// Package scheduler owns the single repeating timer that drives check cycles.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/pkg/errors"
	"sjsage522/pricewatcher/services/worker"
)

// Runner executes one check cycle
type Runner interface {
	RunCycle(ctx context.Context) worker.Summary
}

// Controller is the control surface a front door (HTTP, CLI, queue) talks to
type Controller interface {
	Start(interval time.Duration) error
	StartMinutes(minutes int) error
	Stop()
	RunOnce(ctx context.Context) worker.Summary
	Status() Status
}

// Status is a point-in-time view of the scheduler
type Status struct {
	Running     bool           `json:"running"`
	Interval    time.Duration  `json:"interval"`
	LastRun     time.Time      `json:"last_run,omitempty"`
	InFlight    int32          `json:"in_flight"`
	Skipped     int64          `json:"skipped"`
	LastSummary worker.Summary `json:"-"`
}

// Scheduler is either Idle (no timer) or Running (exactly one timer).
//
// Ticks that arrive while any cycle is still in flight are skipped and counted.
// Stop never preempts a cycle: cycles run on the base context, not on the timer's lifetime.
type Scheduler struct {
	runner  Runner
	baseCtx context.Context

	mu       sync.Mutex
	ticker   *time.Ticker
	done     chan struct{}
	interval time.Duration
	lastRun  time.Time
	last     worker.Summary

	inFlight atomic.Int32
	skipped  atomic.Int64
	loops    atomic.Int32
	cycles   sync.WaitGroup

	log *logger.Logger
}

var _ Controller = (*Scheduler)(nil)

// New creates an Idle scheduler. baseCtx is handed to every cycle.
func New(baseCtx context.Context, runner Runner) *Scheduler {
	return &Scheduler{
		runner:  runner,
		baseCtx: baseCtx,
		log:     logger.ForScheduler(),
	}
}

// Start installs a repeating timer, replacing any timer already active
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return errors.NewConfiguration(fmt.Sprintf("interval must be positive, got %v", interval), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := s.stopLocked()

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	s.ticker = ticker
	s.done = done
	s.interval = interval

	s.loops.Add(1)
	go s.loop(ticker, done)

	s.log.Info().Dur("interval", interval).Bool("replaced", replaced).Msg("scheduler started")
	return nil
}

// StartMinutes is Start for callers that speak whole minutes
func (s *Scheduler) StartMinutes(minutes int) error {
	if minutes <= 0 {
		return errors.NewConfiguration(fmt.Sprintf("interval must be at least one minute, got %d", minutes), nil)
	}
	return s.Start(time.Duration(minutes) * time.Minute)
}

// Stop cancels the timer. Calling it while Idle does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopLocked() {
		s.log.Info().Msg("scheduler stopped")
	}
}

func (s *Scheduler) stopLocked() bool {
	if s.ticker == nil {
		return false
	}
	s.ticker.Stop()
	close(s.done)
	s.ticker = nil
	s.done = nil
	s.interval = 0
	return true
}

// RunOnce runs one cycle right now and leaves the Idle/Running state untouched
func (s *Scheduler) RunOnce(ctx context.Context) worker.Summary {
	s.cycles.Add(1)
	defer s.cycles.Done()

	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	s.log.Info().Msg("manual cycle requested")
	return s.run(ctx)
}

// Status reports whether a timer is active and at what interval
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Running:     s.ticker != nil,
		Interval:    s.interval,
		LastRun:     s.lastRun,
		InFlight:    s.inFlight.Load(),
		Skipped:     s.skipped.Load(),
		LastSummary: s.last,
	}
}

// Shutdown stops the timer and waits for in-flight cycles or ctx, whichever comes first
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.Stop()

	finished := make(chan struct{})
	go func() {
		s.cycles.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ticker *time.Ticker, done <-chan struct{}) {
	defer s.loops.Add(-1)

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			select {
			case <-done:
				return
			default:
			}
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	if !s.inFlight.CompareAndSwap(0, 1) {
		skipped := s.skipped.Add(1)
		s.log.Warn().Int64("skipped_total", skipped).Msg("previous cycle still running, tick skipped")
		return
	}

	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		defer s.inFlight.Add(-1)
		s.run(s.baseCtx)
	}()
}

func (s *Scheduler) run(ctx context.Context) worker.Summary {
	summary := s.runner.RunCycle(ctx)

	s.mu.Lock()
	s.lastRun = summary.StartedAt
	s.last = summary
	s.mu.Unlock()

	return summary
}
