package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirStore is an ObjectStore backed by a directory tree. Keys map to file
// paths relative to the root, with "/" as the key separator.
type DirStore struct {
	root string
}

// NewDirStore creates the root directory if needed and returns a store
// rooted there.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating store root %s: %w", root, err)
	}
	return &DirStore{root: root}, nil
}

// Get reads the object at key, or ErrNotFound if it was never written.
func (s *DirStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// Put writes the object at key, creating parent directories as needed and
// overwriting any existing object.
func (s *DirStore) Put(ctx context.Context, key string, body []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directories for %s: %w", key, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// resolve maps a key to a path under the root, rejecting keys that would
// escape it.
func (s *DirStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}
