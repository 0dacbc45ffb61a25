// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger at level ("debug", "info", ...; unknown values fall
// back to info). Output is JSON when json is set, else a console writer.
func New(level string, json bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, json)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string, json bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := w
	if !json {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
