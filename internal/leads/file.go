// Package leads mirrors accepted appointments into a JSON file that the
// store staff pick up, and runs the background job that keeps it current.
package leads

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gotodobbs/assistant/internal/appointment"
)

// File is a JSON array of appointment records, newest last, rewritten in
// full on every change. Writes go through a temp file and rename so readers
// never see a partial array.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string { return f.path }

// Read returns every record in the file. A missing file is an empty list.
func (f *File) Read() ([]appointment.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

// Upsert adds rec, or replaces the record with the same id in place.
func (f *File) Upsert(rec appointment.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.read()
	if err != nil {
		return err
	}
	replaced := false
	for i := range records {
		if records[i].ID == rec.ID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	return f.write(records)
}

func (f *File) read() ([]appointment.Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []appointment.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading leads file: %w", err)
	}
	records := []appointment.Record{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing leads file %s: %w", f.path, err)
	}
	return records, nil
}

func (f *File) write(records []appointment.Record) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating leads directory: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding leads: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".leads-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing leads file: %w", err)
	}
	return nil
}
