package alert

import (
	"fmt"
	"strconv"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/services/cache"
)

// RepeatPolicy controls whether an alert is re-sent while the price stays past its threshold
type RepeatPolicy string

const (
	// EveryCycle re-emits the alert on every cycle the condition holds
	EveryCycle RepeatPolicy = "every_cycle"
	// OnCross emits once, then stays quiet until the price crosses back over the threshold
	OnCross RepeatPolicy = "on_cross"
)

// ParseRepeatPolicy maps a config value to a policy
func ParseRepeatPolicy(s string) (RepeatPolicy, error) {
	switch RepeatPolicy(s) {
	case "", EveryCycle:
		return EveryCycle, nil
	case OnCross:
		return OnCross, nil
	default:
		return "", fmt.Errorf("unknown alert repeat policy %q", s)
	}
}

// Filter decides which evaluated events are actually dispatched
type Filter interface {
	Filter(target model.Target, price *float64, events []Event) []Event
}

// PassThrough dispatches every event
type PassThrough struct{}

func (PassThrough) Filter(_ model.Target, _ *float64, events []Event) []Event {
	return events
}

// Suppressor remembers emitted kinds per target in the cache. The marker for a kind
// is cleared once an observed price is back on the quiet side of its threshold.
type Suppressor struct {
	cacheSvc cache.CacheService
	log      *logger.Logger
}

// NewSuppressor creates a Suppressor backed by cacheSvc
func NewSuppressor(cacheSvc cache.CacheService) *Suppressor {
	return &Suppressor{cacheSvc: cacheSvc, log: logger.ForCache()}
}

// NewFilter returns the Filter for policy
func NewFilter(policy RepeatPolicy, cacheSvc cache.CacheService) Filter {
	if policy == OnCross && cacheSvc != nil {
		return NewSuppressor(cacheSvc)
	}
	return PassThrough{}
}

func (s *Suppressor) Filter(target model.Target, price *float64, events []Event) []Event {
	if price != nil {
		s.clearCrossed(target, *price)
	}

	var out []Event
	for _, e := range events {
		key := suppressKey(e.TargetID, e.Kind)
		if _, err := s.cacheSvc.Get(key); err == nil {
			s.log.Debug().Str("target_id", e.TargetID).Str("kind", string(e.Kind)).Msg("repeat alert suppressed")
			continue
		}
		if err := s.cacheSvc.Set(key, []byte(strconv.FormatFloat(e.Price, 'f', 2, 64)), 0); err != nil {
			s.log.Warn().Err(err).Str("target_id", e.TargetID).Msg("failed to remember alert")
		}
		out = append(out, e)
	}
	return out
}

func (s *Suppressor) clearCrossed(target model.Target, price float64) {
	if price > target.MinPrice {
		s.forget(target.ID, PriceDrop)
	}
	if target.MaxPrice == nil || price < *target.MaxPrice {
		s.forget(target.ID, PriceHigh)
	}
}

func (s *Suppressor) forget(targetID string, kind Kind) {
	if err := s.cacheSvc.Delete(suppressKey(targetID, kind)); err != nil && !cache.IsMiss(err) {
		s.log.Warn().Err(err).Str("target_id", targetID).Msg("failed to clear alert marker")
	}
}

func suppressKey(targetID string, kind Kind) string {
	return "alert_" + targetID + "_" + string(kind)
}
