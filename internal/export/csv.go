package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/maltedev/avvo-profile-scraper/internal/models"
)

// CSVWriter writes the rows of successive profiles to one file. The first
// profile truncates the file and writes the header; each later profile is
// appended after one fully blank separator row.
type CSVWriter struct {
	mu      sync.Mutex
	path    string
	started bool
}

func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Resume makes the next Write append to an existing file instead of
// replacing it.
func (w *CSVWriter) Resume() *CSVWriter {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := os.Stat(w.path); err == nil {
		w.started = true
	}
	return w
}

func (w *CSVWriter) Path() string {
	return w.path
}

func (w *CSVWriter) Write(rows []models.FlatRow) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	appending := w.started
	if appending {
		if _, err := os.Stat(w.path); errors.Is(err, os.ErrNotExist) {
			appending = false
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appending {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(w.path, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", w.path, err)
	}

	if err := WriteRows(f, rows, !appending, appending); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}

	w.started = true
	return nil
}

// WriteRows encodes rows in column order, optionally preceded by the header
// or by a blank separator row.
func WriteRows(out io.Writer, rows []models.FlatRow, header, separator bool) error {
	cw := csv.NewWriter(out)
	columns := models.Columns()

	if header {
		if err := cw.Write(columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if separator {
		if err := cw.Write(make([]string, len(columns))); err != nil {
			return fmt.Errorf("failed to write separator: %w", err)
		}
	}
	for _, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile replaces path with a standalone CSV of rows.
func WriteFile(path string, rows []models.FlatRow) error {
	return NewCSVWriter(path).Write(rows)
}
