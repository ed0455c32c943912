package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(zerolog.New(&buf)).WithFields(Fields{"component": "cycle", "targets": 3})

	log.Info().Msg("cycle started")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "cycle", entry["component"])
	assert.Equal(t, float64(3), entry["targets"])
	assert.Equal(t, "cycle started", entry["message"])
}

func TestWithStrAndError(t *testing.T) {
	var buf bytes.Buffer
	log := New(zerolog.New(&buf)).WithStr("cycle_id", "abc").WithError(errors.New("boom"))

	log.Warn().Msg("target check failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "abc", entry["cycle_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error().Msg("nothing")
	})
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PRICEWATCH_ENVIRONMENT", "production")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	t.Setenv("PRICEWATCH_ENVIRONMENT", "")
	assert.Equal(t, zerolog.DebugLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "loud")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())
}
