// Package logging builds the application's slog loggers.
package logging

import (
	"io"
	"log/slog"
)

// NewWithWriter creates the application logger on w. The CLI passes the
// command's stderr so lesson output on stdout stays clean. The "error" key
// is renamed to "err".
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// Level maps the CLI verbosity switch to a slog level.
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
