// Package logging configures the zerolog logger shared by templator components.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level selects how much is logged.
type Level int

const (
	// LevelQuiet disables logging.
	LevelQuiet Level = iota
	// LevelInfo logs info, warnings and errors.
	LevelInfo
	// LevelDebug adds debug messages and caller information.
	LevelDebug
)

// SetupLogger configures the global logger to write human readable lines to w.
// Colors are only used when w is a terminal.
func SetupLogger(w io.Writer, level Level) {
	switch level {
	case LevelQuiet:
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case LevelDebug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}

	ctx := zerolog.New(console).With().Timestamp()
	if level >= LevelDebug {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()

	log.Debug().Int("level", int(level)).Msg("Logger initialized")
}

// GetLogger returns a contextualized logger with the given component name.
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
