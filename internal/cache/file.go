package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cebimar/veliger/internal/fsutil"
)

// FileBackend keeps one file per unit in a directory.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(unit Unit) string {
	return filepath.Join(b.dir, "."+string(unit)+"cache")
}

func (b *FileBackend) Save(_ context.Context, unit Unit, payload []byte) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return fsutil.WriteFileAtomic(b.path(unit), payload, 0o644)
}

func (b *FileBackend) Load(_ context.Context, unit Unit) ([]byte, error) {
	data, err := os.ReadFile(b.path(unit))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrUnitMissing
	}
	return data, err
}

// Ping reports whether the cache directory is writable.
func (b *FileBackend) Ping(context.Context) error {
	return fsutil.IsWritable(b.dir)
}
