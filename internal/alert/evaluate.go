package alert

import (
	"math"
	"time"

	"sjsage522/pricewatcher/internal/model"
)

// Evaluate applies the threshold rules to a freshly observed price. Both rules are
// checked independently, so one call may return zero, one or two events.
func Evaluate(target model.Target, price *float64, now time.Time) []Event {
	if !target.SendAlerts || price == nil {
		return nil
	}
	p := *price
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return nil
	}

	var events []Event
	if p <= target.MinPrice {
		events = append(events, Event{
			Kind:       PriceDrop,
			TargetID:   target.ID,
			Price:      p,
			Threshold:  target.MinPrice,
			OccurredAt: now,
		})
	}
	if target.MaxPrice != nil && p >= *target.MaxPrice {
		events = append(events, Event{
			Kind:       PriceHigh,
			TargetID:   target.ID,
			Price:      p,
			Threshold:  *target.MaxPrice,
			OccurredAt: now,
		})
	}
	return events
}
