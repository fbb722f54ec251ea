// Package report serializes scrape results for operators: review CSVs with
// a fixed column contract and a plain-text insight report. The scrape core
// never touches these; only the CLI and the API layer write files.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/profitstory/amazon-review-scraper/internal/models"
)

// ReviewCSVWriter writes review records to CSV. The column set and order
// are a fixed contract with downstream consumers; changing them breaks
// existing analysis notebooks.
type ReviewCSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewReviewCSVWriter creates the output file and writes the header row.
func NewReviewCSVWriter(filename string) (*ReviewCSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(models.ReviewCSVHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &ReviewCSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends review records to the CSV output.
func (w *ReviewCSVWriter) Write(records []models.ReviewRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, rec := range records {
		if err := w.writer.Write(rec.CSVRow()); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (w *ReviewCSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return w.file.Close()
}

// WriteReviewCSV is the one-shot convenience used by the CLI: create,
// write, close.
func WriteReviewCSV(filename string, records []models.ReviewRecord) error {
	w, err := NewReviewCSVWriter(filename)
	if err != nil {
		return err
	}
	if err := w.Write(records); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
