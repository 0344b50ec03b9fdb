package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/botlang/pkg/config"
)

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "warn", Format: "logfmt"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "run", "abc")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "run=abc")
}

func TestTerminalFormatFallsBackWhenNotATTY(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "info", Format: "terminal"}, &buf)
	require.NoError(t, err)
	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Debug("tick", "n", 3)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "tick", rec["msg"])
	assert.Equal(t, float64(3), rec["n"])
}

func TestBadSettings(t *testing.T) {
	_, err := New(config.LogConfig{Level: "chatty"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = New(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing happens")
}
