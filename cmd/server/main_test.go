package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"imposter-rounds/internal/config"
)

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imposter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9090\"\ngame:\n  consensusDelay: 3s\n"), 0o600))

	var out bytes.Buffer
	require.NoError(t, configCommand(path, &out))

	assert.Contains(t, out.String(), "consensusDelay: 3s")

	var dumped map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &dumped))
	assert.Equal(t, "9090", dumped["server"]["port"])
	assert.Equal(t, "info", dumped["logging"]["level"])
}

func TestConfigCommandRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imposter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  format: xml\n"), 0o600))

	assert.Error(t, configCommand(path, &bytes.Buffer{}))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestNewLogger(t *testing.T) {
	var out bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &out)

	logger.Info("hidden")
	logger.Warn("shown", "roomCode", "ABC123")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), `"msg":"shown"`)
	assert.Contains(t, out.String(), `"roomCode":"ABC123"`)
}
