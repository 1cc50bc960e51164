package authclient

import (
	"maps"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Storage persists session values across runs, like a browser's local
// storage.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// MemoryStorage keeps values for the lifetime of the process.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// FileStorage keeps values in a YAML file, rewritten on every change.
type FileStorage struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// OpenFileStorage loads path, which may not exist yet.
func OpenFileStorage(path string) (*FileStorage, error) {
	s := &FileStorage{path: path, values: map[string]string{}}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, ErrRegistry.NewWithCause(CodeStorageFailed, err).WithDetail("path", path)
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, ErrRegistry.NewWithCause(CodeStorageFailed, err).WithDetail("path", path)
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	return s, nil
}

func (s *FileStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.values)
	next[key] = value
	if err := s.flush(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *FileStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	next := maps.Clone(s.values)
	delete(next, key)
	if err := s.flush(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

// flush writes values to a temporary file and renames it over the target.
// Callers hold mu.
func (s *FileStorage) flush(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return ErrRegistry.NewWithCause(CodeStorageFailed, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return ErrRegistry.NewWithCause(CodeStorageFailed, err).WithDetail("path", s.path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return ErrRegistry.NewWithCause(CodeStorageFailed, err).WithDetail("path", s.path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ErrRegistry.NewWithCause(CodeStorageFailed, err).WithDetail("path", s.path)
	}
	if err := tmp.Close(); err != nil {
		return ErrRegistry.NewWithCause(CodeStorageFailed, err).WithDetail("path", s.path)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return ErrRegistry.NewWithCause(CodeStorageFailed, err).WithDetail("path", s.path)
	}
	return nil
}
