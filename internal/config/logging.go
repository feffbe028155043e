package config

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global zerolog logger instance.
var Logger zerolog.Logger

// InitLogger configures the package-level Logger with the given level.
// Unknown levels fall back to info.
func InitLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	Logger = zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func init() {
	// Default until the root command parses LOG_LEVEL
	InitLogger("info")
}
