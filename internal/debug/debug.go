// Package debug provides the diagnostic logger shared by the packages of this
// module. It is silent unless the DEBUG_LOG environment variable names a file
// to append to; DEBUG_LEVEL selects the logrus level (default "debug").
package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.Level = logrus.DebugLevel

	debugfile := os.Getenv("DEBUG_LOG")
	if debugfile == "" {
		return l
	}

	f, err := os.OpenFile(debugfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open debug log file: %v\n", err)
		return l
	}
	l.Out = f

	if lvl := os.Getenv("DEBUG_LEVEL"); lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid DEBUG_LEVEL %q: %v\n", lvl, err)
		} else {
			l.Level = level
		}
	}
	return l
}

// SetOutput redirects the logger, mostly for tests. A nil writer discards
// all output.
func SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	logger.SetOutput(w)
}

// WithComponent returns an entry tagged with the given component name.
func WithComponent(name string) *logrus.Entry {
	return logger.WithField("component", name)
}
