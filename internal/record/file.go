package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile persists rec at path. The document is written to a temporary file
// in the same directory and renamed into place, so a failed write never
// leaves a partial record behind.
func WriteFile(path string, rec Record) error {
	if path == "" {
		return errors.New("output path cannot be empty")
	}
	data, err := rec.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".glyphpack-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod temp record: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist record: %w", err)
	}
	return nil
}

// ReadFile loads and parses the record stored at path.
func ReadFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read record %s: %w", path, err)
	}
	return Parse(data)
}
