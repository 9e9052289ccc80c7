// Package eventlog implements the Event Log Store (spec §4.B): per-agent
// append-only JSON-line streams (progress, findings, raw stream output)
// with bounded, format-aware readers.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer appends one flushed JSON object per line to a single stream file.
// Appenders hold no lock — POSIX append-mode writes are used under the
// append-only, single-writer contract documented in spec §5.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// OpenWriter opens (creating parent directories and the file if needed) an
// append-mode writer for path.
func OpenWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Writer{file: f, path: path}, nil
}

// Append marshals v to JSON, appends it as one line, and syncs — "flushed"
// per spec §4.B so a crash immediately after a self-report does not lose
// the line.
func (w *Writer) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("append to %s: %w", w.path, err)
	}
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// AppendLine appends a raw JSON-line payload that has already been framed
// by the caller (used by the Process Host's stdout tee for backend P,
// where the child process itself produces already-valid JSON lines).
func (w *Writer) AppendLine(rawJSONLine []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(rawJSONLine) == 0 {
		return nil
	}
	if rawJSONLine[len(rawJSONLine)-1] != '\n' {
		rawJSONLine = append(rawJSONLine, '\n')
	}
	if _, err := w.file.Write(rawJSONLine); err != nil {
		return fmt.Errorf("append line to %s: %w", w.path, err)
	}
	return w.file.Sync()
}
