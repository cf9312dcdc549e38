package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DBG", zapcore.DebugLevel},
		{"  info  ", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"Warn", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"err", zapcore.ErrorLevel},
		{"random", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.input), "input %q", tt.input)
	}
}

func TestNew(t *testing.T) {
	logger, err := New("debug", false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	dev, err := New("warn", true)
	require.NoError(t, err)
	assert.False(t, dev.Core().Enabled(zapcore.InfoLevel))
}
