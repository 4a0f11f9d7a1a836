package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facebook/flipper-sub000/internal/logging"
)

func TestNewWriter_JSONNormalizesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriter(&buf, slog.LevelInfo, "json")
	logger.Debug("hidden")
	logger.Error("Command failed", "error", "boom", "method", "getRoot")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "boom", line["err"])
	assert.NotContains(t, line, "error")
	assert.Equal(t, "getRoot", line["method"])
}

func TestNewWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	logging.NewWriter(&buf, slog.LevelDebug, "text").Debug("Tracked", "id", "7")
	assert.Contains(t, buf.String(), "msg=Tracked")
	assert.Contains(t, buf.String(), "id=7")
}

func TestParseLevel(t *testing.T) {
	level, err := logging.ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = logging.ParseLevel("loud")
	assert.Error(t, err)
}
