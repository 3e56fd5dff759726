package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/pipeaudit/internal/models"
)

// WriteJSON writes the report to path with two-space indentation,
// replacing any existing file atomically.
func WriteJSON(report *models.Report, path string) error {
	if report == nil {
		return &OutputError{Path: path, Err: fmt.Errorf("report is nil")}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return &OutputError{Path: path, Err: fmt.Errorf("marshal report: %w", err)}
	}
	data = append(data, '\n')

	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &OutputError{Path: path, Err: fmt.Errorf("create output directory: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, ".pipeaudit-*.tmp")
	if err != nil {
		return &OutputError{Path: path, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &OutputError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &OutputError{Path: path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return &OutputError{Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &OutputError{Path: path, Err: err}
	}

	success = true
	return nil
}
