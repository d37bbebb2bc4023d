package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dshills/covtrack/internal/snapshot"
)

// FSStore keeps records files in a directory tree laid out as
// owner/repo/branch.covtrack.json, the same layout Walk reads.
type FSStore struct {
	dir string
	mu  sync.Mutex
}

// NewFS creates an FSStore rooted at dir. If dir is empty, uses the default
// data directory.
func NewFS(dir string) (*FSStore, error) {
	if dir == "" {
		d, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating records directory: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Dir returns the root of the records tree.
func (s *FSStore) Dir() string {
	return s.dir
}

func (s *FSStore) Read(_ context.Context, key snapshot.Key) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.read(key)
	if err != nil {
		return nil, "", err
	}
	return data, ContentID(data), nil
}

func (s *FSStore) Write(_ context.Context, key snapshot.Key, data []byte, expectedID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(key)
	switch {
	case errors.Is(err, ErrNotFound):
		if expectedID != "" {
			return "", fmt.Errorf("%w: %s was removed", ErrConflict, key.Path())
		}
	case err != nil:
		return "", err
	default:
		if expectedID == "" || ContentID(current) != expectedID {
			return "", fmt.Errorf("%w: %s", ErrConflict, key.Path())
		}
	}

	path := s.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating records directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".covtrack-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing records: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("replacing records: %w", err)
	}
	return ContentID(data), nil
}

func (s *FSStore) Delete(_ context.Context, key snapshot.Key, expectedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(key)
	if err != nil {
		return err
	}
	if ContentID(current) != expectedID {
		return fmt.Errorf("%w: %s", ErrConflict, key.Path())
	}
	if err := os.Remove(s.entryPath(key)); err != nil {
		return fmt.Errorf("removing records: %w", err)
	}
	return nil
}

func (s *FSStore) read(key snapshot.Key) ([]byte, error) {
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key.Path())
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return data, nil
}

func (s *FSStore) entryPath(key snapshot.Key) string {
	return filepath.Join(s.dir, filepath.FromSlash(key.Path()))
}

// ContentID is the SHA-256 of data, hex encoded.
func ContentID(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}

func defaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "covtrack", "records"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "covtrack", "records"), nil
}
