package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore — файловое контент-хранилище: один блоб — один файл
// в базовом каталоге. Права ограничены владельцем процесса.
type FSStore struct {
	dir string
}

var _ ContentStore = (*FSStore)(nil)

// NewFSStore создаёт хранилище в каталоге dir (каталог создаётся при нужде).
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("storage: empty directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", name, err)
	}
	return path, nil
}

func (s *FSStore) Get(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (s *FSStore) Delete(path string) (bool, error) {
	return SecureDelete(path, DefaultDeletePasses)
}

func (s *FSStore) Copy(srcPath, dstName string) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("storage: copy read %s: %w", srcPath, err)
	}
	return s.Put(dstName, data)
}

func (s *FSStore) Size(path string) (int64, bool) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return fi.Size(), true
}
