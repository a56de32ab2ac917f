package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		want    zapcore.Level
		wantErr string
	}{
		{"json info", "info", "json", zapcore.InfoLevel, ""},
		{"console debug", "debug", "console", zapcore.DebugLevel, ""},
		{"text alias", "warn", "text", zapcore.WarnLevel, ""},
		{"uppercase level", "ERROR", "json", zapcore.ErrorLevel, ""},
		{"defaults", "", "", zapcore.InfoLevel, ""},
		{"invalid level", "loud", "json", 0, "invalid log level"},
		{"invalid format", "info", "xml", 0, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, logger)
			defer func() { _ = logger.Sync() }()

			assert.True(t, logger.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1))
			}
		})
	}
}
