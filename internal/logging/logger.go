// Package logging builds the process logger. Logs always go to stderr
// because stdout carries the MCP stdio transport.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger writing to w at the named level. Output is
// human-readable when console is true and JSON lines otherwise.
func New(w io.Writer, level string, console bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parsing log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if console {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("app", "shellrun").Logger(), nil
}

// Init builds the stderr logger and installs it as the global zerolog logger.
func Init(level string) (zerolog.Logger, error) {
	console := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	logger, err := New(os.Stderr, level, console)
	if err != nil {
		return logger, err
	}
	log.Logger = logger
	return logger, nil
}
