package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, dev := range []bool{false, true} {
		logger, err := New("debug", dev)
		if err != nil {
			t.Fatalf("new logger (development=%v): %v", dev, err)
		}
		if !logger.Desugar().Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("expected debug level enabled (development=%v)", dev)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{" ERROR ", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}
