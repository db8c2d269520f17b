package exporter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// TempSuffix is appended to the output path to name the staging file
const TempSuffix = ".tmp"

// TextfileWriter stages exposition lines in a temporary file next to the
// destination and renames it over the destination in one step.
type TextfileWriter struct {
	path    string
	tmpPath string
	log     logrus.FieldLogger
}

// NewTextfileWriter creates a writer for the given destination path
func NewTextfileWriter(path string, log logrus.FieldLogger) *TextfileWriter {
	return &TextfileWriter{
		path:    path,
		tmpPath: path + TempSuffix,
		log:     log.WithField("component", "textfile-writer"),
	}
}

// Path returns the destination path
func (w *TextfileWriter) Path() string { return w.path }

// TempPath returns the staging path
func (w *TextfileWriter) TempPath() string { return w.tmpPath }

// Begin creates an empty staging file, discarding leftovers of an earlier
// aborted run.
func (w *TextfileWriter) Begin() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("failed to create textfile directory: %w", err)
	}

	f, err := os.OpenFile(w.tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return nil
}

// Append adds content to the staging file. Begin must have been called.
func (w *TextfileWriter) Append(content string) error {
	f, err := os.OpenFile(w.tmpPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return nil
}

// Commit flushes the staging file and renames it over the destination
func (w *TextfileWriter) Commit() error {
	f, err := os.OpenFile(w.tmpPath, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(w.tmpPath, w.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	w.log.WithField("path", w.path).Debug("Replaced textfile")
	return nil
}

// Abort removes the staging file, leaving the destination untouched
func (w *TextfileWriter) Abort() error {
	if err := os.Remove(w.tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}
