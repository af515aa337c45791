package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		err  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewTextLoggerTo(&buf, slog.LevelDebug)
	l.WithSamples(30).WithCenters(10).WithSource("bunny.xyz").Info("build done")

	out := buf.String()
	assert.Contains(t, out, "samples=30")
	assert.Contains(t, out, "centers=10")
	assert.Contains(t, out, "source=bunny.xyz")
	assert.Contains(t, out, "build done")
}

func TestNoopDiscards(t *testing.T) {
	l := Noop()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}

func TestFromConfig(t *testing.T) {
	l, err := FromConfig("warn", "json")
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = FromConfig("info", "xml")
	assert.Error(t, err)
}
