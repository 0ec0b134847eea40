// Package logging builds the logrus logger shared by chunkfile components.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger at the given level ("debug", "info", "warn",
// "error"). Debug uses the text formatter with full timestamps; other levels
// emit JSON. Output is appended to file when set, stdout otherwise. The
// returned Closer releases the log file and must be closed by the caller.
func New(level, file string) (*logrus.Logger, io.Closer, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}

	log := logrus.New()
	log.SetLevel(lvl)
	log.Out = os.Stdout

	if lvl >= logrus.DebugLevel {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if file == "" {
		return log, nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return nil, nil, fmt.Errorf("logging: create log directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open log file: %w", err)
	}
	log.Out = f
	return log, f, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	log.SetLevel(logrus.PanicLevel)
	return log
}
