package alert

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricewatcher/internal/model"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func target(min float64, max *float64) model.Target {
	return model.Target{ID: "t1", MinPrice: min, MaxPrice: max, SendAlerts: true}
}

func TestEvaluateAboveMax(t *testing.T) {
	events := Evaluate(target(500, model.Float(1000)), model.Float(1500), now)

	require.Len(t, events, 1)
	assert.Equal(t, PriceHigh, events[0].Kind)
	assert.Equal(t, 1500.0, events[0].Price)
	assert.Equal(t, 1000.0, events[0].Threshold)
	assert.Equal(t, "t1", events[0].TargetID)
	assert.Equal(t, now, events[0].OccurredAt)
}

func TestEvaluateBelowMin(t *testing.T) {
	events := Evaluate(target(500, model.Float(1000)), model.Float(400), now)

	require.Len(t, events, 1)
	assert.Equal(t, PriceDrop, events[0].Kind)
	assert.Equal(t, 500.0, events[0].Threshold)
}

func TestEvaluateBoundariesAreInclusive(t *testing.T) {
	events := Evaluate(target(500, model.Float(1000)), model.Float(500), now)
	require.Len(t, events, 1)
	assert.Equal(t, PriceDrop, events[0].Kind)

	events = Evaluate(target(500, model.Float(1000)), model.Float(1000), now)
	require.Len(t, events, 1)
	assert.Equal(t, PriceHigh, events[0].Kind)
}

func TestEvaluateBothMayFire(t *testing.T) {
	events := Evaluate(target(1000, model.Float(800)), model.Float(900), now)

	require.Len(t, events, 2)
	assert.Equal(t, PriceDrop, events[0].Kind)
	assert.Equal(t, PriceHigh, events[1].Kind)
}

func TestEvaluateInBand(t *testing.T) {
	assert.Empty(t, Evaluate(target(500, model.Float(1000)), model.Float(750), now))
	assert.Empty(t, Evaluate(target(500, nil), model.Float(1e9), now))
}

func TestEvaluateSendAlertsFalse(t *testing.T) {
	tg := target(500, nil)
	tg.SendAlerts = false
	assert.Empty(t, Evaluate(tg, model.Float(100), now))
}

func TestEvaluateNullOrNonFinite(t *testing.T) {
	tg := target(500, model.Float(1000))
	assert.Empty(t, Evaluate(tg, nil, now))
	assert.Empty(t, Evaluate(tg, model.Float(math.NaN()), now))
	assert.Empty(t, Evaluate(tg, model.Float(math.Inf(1)), now))
	assert.Empty(t, Evaluate(tg, model.Float(math.Inf(-1)), now))
}
