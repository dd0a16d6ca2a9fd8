package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/energy-sim/internal/config"
)

// FileStore persists each key as a JSON file below a root directory.
// Key segments become subdirectories: "entity/abc" is stored at <root>/entity/abc.json.
type FileStore struct {
	// root is the directory holding all documents.
	root string
	// mu serializes writes so a reader never sees a half-renamed file set.
	mu sync.RWMutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		root: filepath.Clean(dir),
	}
}

// Load reads the document for key from disk.
func (s *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	return contents, nil
}

// Save writes the document for key through a temporary file and an atomic rename.
func (s *FileStore) Save(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

// path maps key to a file below root.
func (s *FileStore) path(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}

	return filepath.Join(s.root, filepath.FromSlash(key)+".json"), nil
}
