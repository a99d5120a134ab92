package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Header starts every output file.
	Header = "### Final Diagnosis:\n\n"

	// FailureText is the marker written when no diagnosis could be produced.
	FailureText = "Error: Could not generate final diagnosis."
)

// OutputWriter persists the final diagnosis, replacing any previous file.
type OutputWriter struct {
	path string
}

// NewOutputWriter creates a writer for path.
func NewOutputWriter(path string) *OutputWriter {
	return &OutputWriter{path: path}
}

// Path returns the output path.
func (w *OutputWriter) Path() string {
	return w.path
}

// Write stores text at the output path, creating parent directories.
// The file is replaced atomically: readers see the old or the new content.
func (w *OutputWriter) Write(text string) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary output file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", w.path, err)
	}
	return nil
}
