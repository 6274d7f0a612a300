// Package logging wires the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Options 日志配置
type Options struct {
	Level  string // debug, info, warn, error
	JSON   bool   // JSON output for production log collectors
	Output io.Writer
}

// Configure applies opts to the shared logger. Entries created by Component
// before the call pick up the new settings because they share the logger.
func Configure(opts Options) *logrus.Logger {
	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	if opts.JSON {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if opts.Output != nil {
		base.SetOutput(opts.Output)
	}
	return base
}

// Logger returns the shared logger.
func Logger() *logrus.Logger {
	return base
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return base.WithField("component", name)
}
