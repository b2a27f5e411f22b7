package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger wraps log.Logger so packages depend on one local type.
type Logger struct {
	*log.Logger
}

// New sets up a stderr logger. DEBUG=1 enables debug level with caller and
// timestamp reporting.
func New() *Logger {
	return NewWithOutput(os.Stderr)
}

// NewWithOutput builds a logger writing to w; tests pass a buffer.
func NewWithOutput(w io.Writer) *Logger {
	base := log.New(w)
	if os.Getenv("DEBUG") == "1" {
		base = log.NewWithOptions(w, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			Prefix:          "scribeflow",
		})
		base.SetLevel(log.DebugLevel)
	} else {
		base.SetLevel(log.InfoLevel)
	}

	return &Logger{Logger: base}
}

// With returns a logger with the given key/value context attached.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...)}
}

// Nop returns a logger that discards everything; used in tests.
func Nop() *Logger {
	base := log.New(io.Discard)
	return &Logger{Logger: base}
}
