package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("level from name", func(t *testing.T) {
		var buf bytes.Buffer
		log := newLogger(&buf, "warn", false)

		log.Info("hidden")
		log.Warn("shown", "instance", "local")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "msg=shown instance=local")
		assert.NotContains(t, out, "time=")
	})

	t.Run("debug flag overrides level", func(t *testing.T) {
		var buf bytes.Buffer
		log := newLogger(&buf, "error", true)

		log.Debug("details")

		assert.Contains(t, buf.String(), "msg=details")
		assert.Contains(t, buf.String(), "source=")
	})
}
