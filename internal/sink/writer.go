package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aletheia-ng/pidginforge/internal/dataset"
	"github.com/aletheia-ng/pidginforge/internal/schema"
)

const timestampLayout = "2006-01-02_15-04-05"

// Writer appends generation results to a pair of newline-delimited JSON
// files: accepted records and failed attempts. Each line is serialized fully
// before a single locked write, so concurrent workers never interleave
// partial lines, and every line is on disk before Write returns.
type Writer struct {
	mu       sync.Mutex
	records  *os.File
	failures *os.File

	recordsPath  string
	failuresPath string
}

// failureLine is the wire shape of one failures-file entry.
type failureLine struct {
	Task   dataset.Combination `json:"task"`
	Reason string              `json:"reason"`
}

// New opens the output files under dir, creating the directory if needed.
// With timestamped naming the run timestamp is computed once here and reused
// for both files for the whole run.
func New(dir string, timestamped bool, now time.Time) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	recordsName, failuresName := "data.jsonl", "failed.jsonl"
	if timestamped {
		stamp := now.Format(timestampLayout)
		recordsName = fmt.Sprintf("data_%s.jsonl", stamp)
		failuresName = fmt.Sprintf("failed_%s.jsonl", stamp)
	}

	w := &Writer{
		recordsPath:  filepath.Join(dir, recordsName),
		failuresPath: filepath.Join(dir, failuresName),
	}

	var err error
	if w.records, err = openAppend(w.recordsPath); err != nil {
		return nil, err
	}
	if w.failures, err = openAppend(w.failuresPath); err != nil {
		_ = w.records.Close()
		return nil, err
	}

	return w, nil
}

// WriteRecord appends one accepted record as a single JSON line.
func (w *Writer) WriteRecord(record schema.Record) error {
	return w.writeLine(w.records, record)
}

// WriteFailure appends one failed attempt: the originating combination plus
// the error-kind string.
func (w *Writer) WriteFailure(combo dataset.Combination, reason string) error {
	return w.writeLine(w.failures, failureLine{Task: combo, Reason: reason})
}

// RecordsPath returns the records file path, fixed for the run.
func (w *Writer) RecordsPath() string {
	return w.recordsPath
}

// FailuresPath returns the failures file path, fixed for the run.
func (w *Writer) FailuresPath() string {
	return w.failuresPath
}

// Close closes both output files.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.records.Close()
	if err2 := w.failures.Close(); err == nil {
		err = err2
	}
	return err
}

func (w *Writer) writeLine(f *os.File, v interface{}) error {
	// Marshal outside the lock; json escapes embedded newlines so the line
	// invariant holds for any record content.
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to serialize line: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append to %s: %w", f.Name(), err)
	}
	return nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}
