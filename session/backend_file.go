package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	fileDirPermissions   = 0o700
	fileRecordPermission = 0o600
)

// FileBackend persists each key as a file under a directory. It is the
// on-disk equivalent of browser local storage for CLI and desktop clients.
type FileBackend struct {
	dir string
}

// NewFileBackend stores records under dir, creating it on first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, filepath.Base(key)+".json")
}

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	return data, nil
}

// Set writes through a temp file and rename so readers never observe a
// half-written record.
func (f *FileBackend) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	if err := os.MkdirAll(f.dir, fileDirPermissions); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := tmp.Chmod(fileRecordPermission); err != nil {
		tmp.Close() //nolint:errcheck // chmod error takes precedence
		return fmt.Errorf("setting session file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

func (f *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
