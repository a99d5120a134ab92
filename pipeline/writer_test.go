package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOutputWriterCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.txt")

	if err := NewOutputWriter(path).Write("hello"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected hello, got %q", data)
	}
}

func TestOutputWriterOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	w := NewOutputWriter(path)

	if err := w.Write("a much longer first version"); err != nil {
		t.Fatal(err)
	}
	if err := w.Write("short"); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "short" {
		t.Errorf("Expected whole-file overwrite, got %q", data)
	}
}

func TestOutputWriterUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A regular file where a directory is expected.
	if err := NewOutputWriter(filepath.Join(blocker, "out.txt")).Write("x"); err == nil {
		t.Error("Expected an error when the parent is a file")
	}
}
