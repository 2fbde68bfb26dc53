// Package log provides the named, per-package loggers used across fadecore.
//
// The decoder core itself never logs (it is a pure function, see decode's
// package doc), but the table builder and the surrounding tooling use this
// package the same way sliver's server/log.NamedLogger is used elsewhere in
// the tree: one logrus entry per package, tagged with a package/component
// pair so log lines can be filtered by origin.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

var root = newRootLogger()

func newRootLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}
	if level := os.Getenv("FADECORE_LOG_LEVEL"); level != "" {
		if parsed, err := logrus.ParseLevel(level); err == nil {
			logger.SetLevel(parsed)
		}
	}
	return logger
}

// NamedLogger returns a logger entry tagged with the owning package and a
// component name within it, e.g. NamedLogger("decode", "tables").
func NamedLogger(pkg string, component string) *logrus.Entry {
	return root.WithFields(logrus.Fields{
		"pkg":       pkg,
		"component": component,
	})
}
