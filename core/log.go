package swd

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the narrow structured-logging surface the core depends on.
// Satisfied directly by *charmlog.Logger; kept as an interface so tests can
// pass nil or a fake without pulling in the real sink.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
}

// NewLogger builds the decoder's default logger at debug level, matching
// the teacher's habit of one named sub-logger per component.
func NewLogger(component string) Logger {
	return charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Prefix: component,
		Level:  charmlog.DebugLevel,
	})
}
