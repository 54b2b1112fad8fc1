package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		json  bool
		debug bool
		level zapcore.Level
	}{
		{name: "console info", level: zapcore.InfoLevel},
		{name: "json debug", json: true, debug: true, level: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.json, tt.debug)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !logger.Core().Enabled(tt.level) {
				t.Fatalf("expected level %s to be enabled", tt.level)
			}
			if tt.level == zapcore.InfoLevel && logger.Core().Enabled(zapcore.DebugLevel) {
				t.Fatalf("debug must be disabled without the debug flag")
			}
		})
	}
}
