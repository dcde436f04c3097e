package imaging

import (
	"log/slog"

	"github.com/gogpu/imaging/internal/logging"
)

// SetLogger configures the logger for imaging and all its sub-packages.
// By default, imaging produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by imaging:
//   - [slog.LevelDebug]: internal diagnostics (detected format, header
//     fields, frame completion, quantizer and resampler statistics)
//   - [slog.LevelWarn]: tolerated anomalies (partial frames returned under
//     AllowPartial, a missing GIF trailer)
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	imaging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by imaging.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
