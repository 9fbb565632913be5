package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	Logger{Level: "debug", Format: "json"}.setup(&buf)

	log.Debug().Str("id", "n1").Msg("Node skipped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "n1", entry["id"])
	assert.Equal(t, "Node skipped", entry["message"])
}

func TestSetupLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	Logger{Level: "warn", Format: "text", Color: "never"}.setup(&buf)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestLevelFallback(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, Logger{}.level())
	assert.Equal(t, zerolog.InfoLevel, Logger{Level: "loud"}.level())
	assert.Equal(t, zerolog.TraceLevel, Logger{Level: "trace"}.level())
}
