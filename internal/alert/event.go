// Package alert decides which threshold alerts a fresh price produces.
package alert

import (
	"fmt"
	"time"
)

// Kind is the alert variant
type Kind string

const (
	// PriceDrop fires when the price is at or below the target's minimum
	PriceDrop Kind = "price_drop"
	// PriceHigh fires when the price is at or above the target's maximum
	PriceHigh Kind = "price_high"
)

// Event is a transient alert handed to dispatchers. It is never stored by the cycle.
type Event struct {
	Kind       Kind      `json:"kind"`
	TargetID   string    `json:"target_id"`
	Price      float64   `json:"price"`
	Threshold  float64   `json:"threshold"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s target=%s price=%.2f threshold=%.2f", e.Kind, e.TargetID, e.Price, e.Threshold)
}
