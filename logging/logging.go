package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Logger is the global logger. Commands adjust its level from the
// --log-level flag; everything else just uses the package helpers.
var Logger zerolog.Logger

func init() {
	w := zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	}
	Logger = zerolog.New(w).With().Timestamp().Logger()
}

func Trace() *zerolog.Event { return Logger.Trace() }

func Debug() *zerolog.Event { return Logger.Debug() }

func Info() *zerolog.Event { return Logger.Info() }

func Warn() *zerolog.Event { return Logger.Warn() }

func Error() *zerolog.Event { return Logger.Error() }

func Fatal() *zerolog.Event { return Logger.Fatal() }

// With returns a child logger context for attaching fields.
func With() zerolog.Context { return Logger.With() }
