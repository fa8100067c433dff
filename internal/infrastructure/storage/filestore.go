// Package storage provides the blob store backends the history state is
// persisted through: a local filesystem store and a SQLite store.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"feedingest/internal/ports"
)

// FileStore keeps blobs as files under a directory. The filesystem is
// injected so tests can run against an in-memory one.
type FileStore struct {
	fs  afero.Fs
	dir string
}

var _ ports.BlobStore = (*FileStore)(nil)

// NewFileStore wires a filesystem and base directory; a nil fs means the OS
// filesystem.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStore{fs: fs, dir: dir}
}

// Read returns the blob stored under key, or ports.ErrNotFound.
func (f *FileStore) Read(_ context.Context, key string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, filepath.Join(f.dir, key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("blob %q: %w", key, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}
	return data, nil
}

// Write stores the blob atomically via a temp file and rename.
func (f *FileStore) Write(_ context.Context, key string, data []byte) error {
	if err := f.fs.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir %q: %w", f.dir, err)
	}

	path := filepath.Join(f.dir, key)
	tmp := path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	if err := f.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace blob %q: %w", key, err)
	}
	return nil
}
