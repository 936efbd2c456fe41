package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_JSONRenamesError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, slog.LevelInfo, FormatJSON)
	logger.Info("step", "error", errors.New("boom"))
	logger.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "boom", rec["err"])
	assert.NotContains(t, rec, "error")
}

func TestNewWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, slog.LevelDebug, FormatAuto).Debug("solve", "keff", 1.0)
	assert.Contains(t, buf.String(), "msg=solve keff=1")
}

func TestResolve(t *testing.T) {
	assert.Equal(t, FormatText, resolve("auto", true))
	assert.Equal(t, FormatJSON, resolve("auto", false))
	assert.Equal(t, FormatJSON, resolve("JSON", true))
	assert.Equal(t, FormatText, resolve("text", false))
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
