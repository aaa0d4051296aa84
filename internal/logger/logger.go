package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	base zerolog.Logger
	set  bool
)

// Init configures the global logger.
//
// An empty level falls back to TRADEBOOK_LOG_LEVEL, then "info". Pretty output
// uses the zerolog console writer on stderr; otherwise records are JSON.
func Init(level string, pretty bool) {
	if level == "" {
		level = getenv("TRADEBOOK_LOG_LEVEL", "info")
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	base = zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(level))
	set = true
}

// L returns the global logger, initializing it with defaults on first use.
func L() *zerolog.Logger {
	if !set {
		Init("", false)
	}
	return &base
}

// Nop returns a logger that discards everything. Tests use it.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
