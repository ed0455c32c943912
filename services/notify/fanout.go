package notify

import (
	"context"
	"errors"

	"sjsage522/pricewatcher/internal/alert"
	"sjsage522/pricewatcher/internal/model"
)

// Dispatcher matches the cycle's dispatcher contract
type Dispatcher interface {
	Send(ctx context.Context, event alert.Event, target model.Target) error
}

// Trimmer is implemented by dispatchers with per-cycle housekeeping
type Trimmer interface {
	TrimStreams(ctx context.Context) error
}

// Fanout sends each alert to every dispatcher and joins their errors
type Fanout struct {
	dispatchers []Dispatcher
}

// NewFanout drops nil dispatchers
func NewFanout(dispatchers ...Dispatcher) *Fanout {
	f := &Fanout{}
	for _, d := range dispatchers {
		if d != nil {
			f.dispatchers = append(f.dispatchers, d)
		}
	}
	return f
}

// Len returns the number of dispatchers
func (f *Fanout) Len() int {
	return len(f.dispatchers)
}

func (f *Fanout) Send(ctx context.Context, event alert.Event, target model.Target) error {
	var errs []error
	for _, d := range f.dispatchers {
		if err := d.Send(ctx, event, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TrimStreams forwards to every dispatcher that supports trimming
func (f *Fanout) TrimStreams(ctx context.Context) error {
	var errs []error
	for _, d := range f.dispatchers {
		if t, ok := d.(Trimmer); ok {
			if err := t.TrimStreams(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
