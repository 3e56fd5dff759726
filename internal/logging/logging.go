package logging

import (
	"log/slog"
	"os"
)

// Init installs the process-wide slog logger. Diagnostics go to stderr so
// stdout stays reserved for the report summary.
func Init(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
