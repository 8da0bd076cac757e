package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "production", "info")
	require.NoError(t, err)

	logger.Info().Str("room_id", "r1").Msg("room created")
	logger.Debug().Msg("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "room created", line["message"])
	assert.Equal(t, "pairchat", line["service"])
	assert.Equal(t, "r1", line["room_id"])
	assert.Contains(t, line, "time")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_ConsoleInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "development", "debug")
	require.NoError(t, err)

	logger.Debug().Msg("visible")

	assert.Contains(t, buf.String(), "visible")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "console output is not JSON")
}

func TestNew_Levels(t *testing.T) {
	logger, err := New(&bytes.Buffer{}, "production", "")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger, err = New(&bytes.Buffer{}, "production", "WARN")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	_, err = New(&bytes.Buffer{}, "production", "loud")
	assert.Error(t, err)
}
