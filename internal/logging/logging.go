// Package logging configures the zerolog logger shared by all components.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Config controls logger initialization.
type Config struct {
	Format string // "json", "console", or "auto"
	Level  string // "debug", "info", "warn", "error"
}

// Init configures zerolog globals and returns the base logger. With format
// "auto" it picks console output when stderr is a terminal and JSON otherwise.
func Init(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	logger := zerolog.New(selectWriter(cfg.Format)).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

func selectWriter(format string) io.Writer {
	switch format {
	case "console":
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	case "json":
		return os.Stderr
	default:
		if term.IsTerminal(int(os.Stderr.Fd())) {
			return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		}
		return os.Stderr
	}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
