package daemon

import (
	"io"
	"log/slog"

	"github.com/leonardotrapani/sttbridge/internal/config"
)

// NewLogger builds the process logger from the [logging] section.
func NewLogger(c *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}

	var handler slog.Handler
	if c.Logging.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
