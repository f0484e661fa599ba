// Package logging constructs the single zerolog.Logger each cmd/* program
// builds once in main and threads through its components, rather than
// relying on package-level loggers.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger for the given level ("debug", "info", "warn", "error")
// and format ("console" or "json"), and sets it as the process-wide default
// level for any dependency that logs through the global zerolog logger.
func New(level, format string) *zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(level))

	var w zerolog.Logger
	if strings.EqualFold(format, "console") {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		w = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return &w
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
