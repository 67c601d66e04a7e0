// Package logging writes the installer's text log.
//
// Every line shown to the user and every command the installer runs is
// mirrored to a log file as key/value pairs through a logr funcr sink, so a
// failed install can be diagnosed after the terminal is gone.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// New returns a logger writing one line per entry to w. Entries with a
// V-level above verbosity are dropped.
func New(w io.Writer, verbosity int) logr.Logger {
	var mu sync.Mutex
	return funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{
		LogTimestamp:    true,
		TimestampFormat: "2006-01-02 15:04:05",
		Verbosity:       verbosity,
	})
}

// File is an open log file.
type File struct {
	Path   string
	Logger logr.Logger
	f      *os.File
}

// Open appends to the log file at path, creating it when missing.
func Open(path string, verbosity int) (*File, error) {
	// #nosec G304 - the path is chosen by the operator
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &File{Path: path, Logger: New(f, verbosity), f: f}, nil
}

// Close flushes and closes the file.
func (l *File) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	if err := l.f.Sync(); err != nil {
		_ = l.f.Close()
		return err
	}
	return l.f.Close()
}
