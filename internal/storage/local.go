package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mirelio/echodesk/internal/models"
)

// LocalStore keeps audio files under a single directory. It is the fallback
// when no blob bucket is configured.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{dir: abs}, nil
}

func (s *LocalStore) Kind() models.StorageKind { return models.StorageLocal }

func (s *LocalStore) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	path, err := s.resolve(objectName)
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return objectName, nil
}

func (s *LocalStore) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// resolve refuses locators that would escape the storage directory.
func (s *LocalStore) resolve(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", errors.New("locator escapes storage directory")
	}
	return filepath.Join(s.dir, filepath.Clean("/"+name)), nil
}
