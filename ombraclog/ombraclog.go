// Package ombraclog builds the structured zerolog logger shared by
// both binaries, following the console-writer construction in the
// teacher's logger package, trimmed to what a standalone tunnel binary
// needs: console output plus an optional single log file.
package ombraclog

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const consoleTimeFormat = time.RFC3339

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// New builds a logger writing to consoleOut at the given level, parsed
// with zerolog.ParseLevel and falling back to InfoLevel on a bad value.
// If logFile is non-empty, log lines are written there as well as to
// the console.
func New(level string, consoleOut io.Writer, logFile string) *zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}

	writers := []io.Writer{consoleWriter(consoleOut)}

	if logFile != "" {
		f, ferr := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if ferr == nil {
			writers = append(writers, f)
		}
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(parsed).
		With().
		Timestamp().
		Logger()

	if err != nil {
		log.Warn().Msgf("unrecognized log level %q, using %q", level, parsed)
	}

	return &log
}

func consoleWriter(out io.Writer) io.Writer {
	noColor := true
	if f, ok := out.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
		out = colorable.NewColorable(f)
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: consoleTimeFormat,
	}
}
