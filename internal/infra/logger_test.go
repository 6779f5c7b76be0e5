package infra

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(LoggerConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Named("coordinator").Warn("pull failed", zap.String("trigger", "timer"))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "pull failed", entry["message"])
	assert.Equal(t, "coordinator", entry["logger"])
	assert.Equal(t, "timer", entry["trigger"])
}

func TestNewLogger_RejectsBadSettings(t *testing.T) {
	_, err := NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(LoggerConfig{Format: "xml"})
	assert.Error(t, err)
}

func TestNewLogger_RotatingFile(t *testing.T) {
	path := t.TempDir() + "/dashboard.log"
	logger, err := NewLogger(LoggerConfig{File: path, MaxSize: 1})
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}
