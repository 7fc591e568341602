package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabsplit/internal/config"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name              string
		logLevel          string
		expectedSlogLevel slog.Level
	}{
		{"DebugLevel", "debug", slog.LevelDebug},
		{"InfoLevel", "info", slog.LevelInfo},
		{"WarnLevel", "warn", slog.LevelWarn},
		{"ErrorLevel", "error", slog.LevelError},
		{"DefaultToInfo", "unknown", slog.LevelInfo},
		{"EmptyToInfo", "", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{
				Logging: config.LoggingConfig{
					Level: tc.logLevel,
				},
			}

			logger := NewLogger(cfg)
			require.NotNil(t, logger)

			assert.True(t, logger.Enabled(context.Background(), tc.expectedSlogLevel), "Logger should be enabled for level "+tc.expectedSlogLevel.String())
			if tc.expectedSlogLevel > slog.LevelDebug {
				assert.False(t, logger.Enabled(context.Background(), tc.expectedSlogLevel-4))
			}
		})
	}
}

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "production", Name: "split-service"},
		Logging:     config.LoggingConfig{Level: "info"},
	}

	logger := newLogger(cfg, &buf)
	buf.Reset()
	logger.Info("payment applied", "bill_id", "b-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "payment applied", line["msg"])
	assert.Equal(t, "b-1", line["bill_id"])
	assert.Equal(t, "split-service", line["service"])
}

func TestNewLogger_DevelopmentIsHumanReadable(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "development", Name: "split-service"},
		Logging:     config.LoggingConfig{Level: "debug"},
	}

	logger := newLogger(cfg, &buf)
	buf.Reset()
	logger.Debug("sweep finished", "timed_out", 2)

	assert.Contains(t, buf.String(), "sweep finished")
	assert.Contains(t, buf.String(), "timed_out")
	assert.False(t, json.Valid(buf.Bytes()))
}
