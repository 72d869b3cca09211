package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	log := NewLogger(Config{Level: "debug", NoColor: true})
	require.NotNil(t, log)
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
}

func TestNewLoggerWithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "modctl.log")
	log := NewLogger(Config{Level: "info", LogFile: logFile, NoColor: true})
	require.NotNil(t, log)

	log.Info().Str("mod", "alpha").Msg("test entry")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"garbage", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewTestLogger(&buf)

	child := Component(log, "activator")
	child.Info().Msg("pass complete")

	assert.Contains(t, buf.String(), `"component":"activator"`)
	assert.Contains(t, buf.String(), "pass complete")
}
