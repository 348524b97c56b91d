// Package diaglog is the CLI's one-line diagnostic logger. The teacher has
// no structured logging dependency anywhere in the retrieved pack (it
// writes straight to os.Stderr via small pr()/dbg() helpers, e.g. sim.go);
// this package follows suit rather than reaching for an ecosystem logger
// that nothing in the corpus uses.
package diaglog

import (
	"io"
	"log"
	"os"
)

// Logger wraps a stdlib *log.Logger writing unprefixed, unadorned lines to
// os.Stderr (or another writer, for tests).
type Logger struct {
	std   *log.Logger
	debug bool
}

// New returns a Logger writing to os.Stderr. debug gates Debugf output.
func New(debug bool) *Logger {
	return NewWithWriter(os.Stderr, debug)
}

// NewWithWriter returns a Logger writing to w, for tests and for embedding
// contexts that don't want stderr directly.
func NewWithWriter(w io.Writer, debug bool) *Logger {
	return &Logger{std: log.New(w, "", 0), debug: debug}
}

// Infof always prints.
func (l *Logger) Infof(format string, args ...any) {
	l.std.Printf(format, args...)
}

// Errorf always prints, prefixed with "error: ".
func (l *Logger) Errorf(format string, args ...any) {
	l.std.Printf("error: "+format, args...)
}

// Debugf prints only when the Logger was constructed with debug enabled.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.debug {
		return
	}
	l.std.Printf("debug: "+format, args...)
}
