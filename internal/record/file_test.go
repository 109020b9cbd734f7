package record

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAndReadBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "encoded.dat")
	rec := New([]byte("payload"), testParams(t))

	if err := WriteFile(path, rec); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != rec {
		t.Fatalf("record changed on disk: %+v vs %+v", got, rec)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the record in %s, found %d entries", dir, len(entries))
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoded.dat")
	if err := os.WriteFile(path, []byte("old contents"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	rec := New([]byte("new"), testParams(t))
	if err := WriteFile(path, rec); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != rec {
		t.Fatal("record was not replaced")
	}
}

func TestWriteFileMissingDirectoryLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing", "encoded.dat")
	if err := WriteFile(path, New(nil, testParams(t))); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat returned %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no leftovers, found %d entries", len(entries))
	}
}

func TestWriteFileRejectsEmptyPath(t *testing.T) {
	if err := WriteFile("", Record{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.dat")); err == nil {
		t.Fatal("expected error for missing record")
	}
}
