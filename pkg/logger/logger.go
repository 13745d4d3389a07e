// Package logger builds the service-wide zerolog root logger. Components
// derive their own sub-loggers from it via With().Str(...).
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level  string // zerolog level name: trace, debug, info, warn, error
	Pretty bool   // Console-formatted output for local development
}

// New creates the root logger. Unknown level names fall back to info so a
// typoed LOG_LEVEL never silences the service; config validation rejects them
// up front when explicitly configured.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// SetGlobalLogger sets the package-level logger used by code that has no
// injected logger
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
