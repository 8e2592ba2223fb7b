// Package logging sets up the structured log file. The terminal belongs to the
// UI, so nothing is ever written to stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

var logFile = "chessgpt-local/debug.log"

// RuntimeLogger owns the log file and the logger writing to it.
type RuntimeLogger struct {
	Logger *log.Logger
	file   *os.File
	path   string
}

// New opens (appending) the log file under the XDG state directory.
func New(level log.Level) (*RuntimeLogger, error) {
	path, err := xdg.StateFile(logFile)
	if err != nil {
		return nil, fmt.Errorf("resolve log path: %w", err)
	}
	return NewAt(path, level)
}

// NewAt opens a log file at an explicit path.
func NewAt(path string, level log.Level) (*RuntimeLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	// #nosec G304 -- path comes from xdg or the command line.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	rl := &RuntimeLogger{
		Logger: newLogger(file, level),
		file:   file,
		path:   path,
	}
	rl.Logger.With("log_file", path).Info("logger initialized")
	return rl, nil
}

// Discard returns a logger that drops everything. Used by tests and as a nil default.
func Discard() *log.Logger {
	return newLogger(io.Discard, log.FatalLevel)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	logger.SetFormatter(log.JSONFormatter)
	return logger
}

// Path returns the log file path.
func (r *RuntimeLogger) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Close closes the log file.
func (r *RuntimeLogger) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}
