package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{format: FormatJSON, want: `"msg":"template saved"`},
		{format: FormatText, want: `msg="template saved"`},
		{format: "", want: `msg="template saved"`},
		{format: FormatTint, want: "template saved"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			logger := slog.New(NewHandler(&buf, "info", tt.format))
			logger.Debug("hidden")
			logger.Info("template saved", "template_id", "tpl-1")

			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "tpl-1")
			assert.NotContains(t, buf.String(), "hidden")
		})
	}
}
