package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sjsage522/pricewatcher/helpers"
	"sjsage522/pricewatcher/internal/alert"
	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/pkg/errors"
)

// Repository is the target store the cycle reads from and writes snapshots to
type Repository interface {
	FindAll(ctx context.Context, filter model.Filter) ([]model.Target, error)
	UpdateSnapshot(ctx context.Context, id string, snapshot model.Snapshot) error
	AppendHistory(ctx context.Context, target model.Target, snapshot model.Snapshot) error
}

// Dispatcher delivers alert events. Delivery is fire-and-forget from the cycle's view.
type Dispatcher interface {
	Send(ctx context.Context, event alert.Event, target model.Target) error
}

// Trimmer is implemented by dispatchers that need housekeeping after each cycle
type Trimmer interface {
	TrimStreams(ctx context.Context) error
}

// Scraper produces a fresh result for one target
type Scraper interface {
	Scrape(ctx context.Context, target model.Target) (model.ScrapeResult, error)
}

// Summary describes one finished cycle
type Summary struct {
	CycleID   string
	StartedAt time.Time
	Duration  time.Duration
	Checked   int
	Failed    int
	Alerts    int
	Err       error // set when the target list itself could not be loaded
}

// Options tunes the worker. Zero values fall back to defaults.
type Options struct {
	Concurrency int
	Filter      model.Filter
	AlertFilter alert.Filter
	FailureLog  helpers.FailureLog
	Now         func() time.Time
}

// Worker runs check cycles: every target is scraped, persisted, evaluated and alerted on
type Worker struct {
	repo        Repository
	scraper     Scraper
	dispatcher  Dispatcher
	alertFilter alert.Filter
	failures    helpers.FailureLog
	concurrency int
	filter      model.Filter
	now         func() time.Time
	log         *logger.Logger
}

// NewWorker creates a new worker. dispatcher may be nil, in which case alerts are only logged.
func NewWorker(repo Repository, scraper Scraper, dispatcher Dispatcher, opts Options) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.AlertFilter == nil {
		opts.AlertFilter = alert.PassThrough{}
	}
	if opts.FailureLog == nil {
		opts.FailureLog = helpers.NopFailureLog{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Worker{
		repo:        repo,
		scraper:     scraper,
		dispatcher:  dispatcher,
		alertFilter: opts.AlertFilter,
		failures:    opts.FailureLog,
		concurrency: opts.Concurrency,
		filter:      opts.Filter,
		now:         opts.Now,
		log:         logger.ForCycle(),
	}
}

// RunCycle checks every target once. A failure on one target never stops the others.
func (w *Worker) RunCycle(ctx context.Context) Summary {
	start := time.Now()
	summary := Summary{
		CycleID:   uuid.NewString(),
		StartedAt: w.now(),
	}
	log := w.log.WithStr("cycle_id", summary.CycleID)

	targets, err := w.repo.FindAll(ctx, w.filter)
	if err != nil {
		summary.Err = errors.NewRepository("", "failed to load targets", err)
		summary.Duration = time.Since(start)
		log.Error().Err(summary.Err).Msg("cycle aborted")
		return summary
	}

	log.Info().Int("targets", len(targets)).Msg("cycle started")

	var (
		wg      sync.WaitGroup
		checked int64
		failed  int64
		alerts  int64
	)
	semaphore := make(chan struct{}, w.concurrency)

	for _, t := range targets {
		wg.Add(1)
		go func(t model.Target) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			sent, err := w.checkTarget(ctx, log, t)
			atomic.AddInt64(&checked, 1)
			atomic.AddInt64(&alerts, int64(sent))
			if err != nil {
				atomic.AddInt64(&failed, 1)
				w.failures.LogFailure(string(t.Platform), t.ID, err)
				log.Warn().Err(err).
					Str("target_id", t.ID).
					Str("platform", string(t.Platform)).
					Str("error_type", string(errors.TypeOf(err))).
					Msg("target check failed")
			}
		}(t)
	}
	wg.Wait()

	// Trim all streams after the cycle
	if trimmer, ok := w.dispatcher.(Trimmer); ok {
		if err := trimmer.TrimStreams(ctx); err != nil {
			log.Warn().Err(err).Msg("stream trimming failed")
		}
	}

	summary.Checked = int(checked)
	summary.Failed = int(failed)
	summary.Alerts = int(alerts)
	summary.Duration = time.Since(start)

	log.Info().
		Int("checked", summary.Checked).
		Int("failed", summary.Failed).
		Int("alerts", summary.Alerts).
		Dur("elapsed", summary.Duration).
		Msg("cycle finished")

	return summary
}

// checkTarget runs scrape, persist, evaluate and dispatch for one target in that order.
// Panics are turned into errors at this boundary.
func (w *Worker) checkTarget(ctx context.Context, log *logger.Logger, t model.Target) (sent int, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("target_id", t.ID).Str("stack", string(debug.Stack())).Msg("panic while checking target")
			err = errors.New(errors.ErrorTypeInternal, string(t.Platform), fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	result, err := w.scraper.Scrape(ctx, t)
	if err != nil {
		return 0, err
	}

	now := w.now()
	snapshot := MergeSnapshot(t, result, now)

	if err := w.repo.UpdateSnapshot(ctx, t.ID, snapshot); err != nil {
		return 0, errors.NewRepository(string(t.Platform), "failed to update snapshot", err)
	}
	if err := w.repo.AppendHistory(ctx, t, snapshot); err != nil {
		return 0, errors.NewRepository(string(t.Platform), "failed to append history", err)
	}

	if result.Price == nil {
		log.Debug().Str("target_id", t.ID).Msg("no price extracted, keeping previous value")
	}

	fresh := ApplySnapshot(t, snapshot)
	events := alert.Evaluate(fresh, result.Price, now)
	events = w.alertFilter.Filter(fresh, result.Price, events)

	for _, event := range events {
		if w.dispatcher == nil {
			log.Info().Str("target_id", t.ID).Str("alert", event.String()).Msg("alert (no dispatcher configured)")
			sent++
			continue
		}
		if err := w.dispatcher.Send(ctx, event, fresh); err != nil {
			log.Warn().Err(errors.NewDispatch(string(t.Platform), "alert delivery failed", err)).
				Str("target_id", t.ID).
				Str("kind", string(event.Kind)).
				Msg("dispatch failed")
			continue
		}
		sent++
	}

	return sent, nil
}

// MergeSnapshot builds the snapshot to persist. Fields the scrape could not find keep their
// previous values; the check time always advances.
func MergeSnapshot(t model.Target, r model.ScrapeResult, now time.Time) model.Snapshot {
	s := model.Snapshot{
		Title:     r.Title,
		Price:     r.Price,
		Currency:  r.Currency,
		ImageURL:  r.ImageURL,
		URL:       r.URL,
		CheckedAt: now,
	}
	if s.Title == "" {
		s.Title = t.Title
	}
	if s.Price == nil {
		s.Price = t.Price
	}
	if s.Currency == "" {
		s.Currency = t.Currency
	}
	if s.ImageURL == "" {
		s.ImageURL = t.ImageURL
	}
	if s.URL == "" {
		s.URL = t.URL
	}
	return s
}

// ApplySnapshot returns t as it reads after snapshot has been persisted
func ApplySnapshot(t model.Target, s model.Snapshot) model.Target {
	checkedAt := s.CheckedAt
	t.Title = s.Title
	t.Price = s.Price
	t.Currency = s.Currency
	t.ImageURL = s.ImageURL
	t.URL = s.URL
	t.LastCheckedAt = &checkedAt
	return t
}
