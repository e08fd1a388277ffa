package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileStorage keeps all keys in a single JSON document on the local filesystem.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage creates a file backed store at path.
// The parent directory is created with 0700 permissions, the file itself is
// only written on the first Set or Delete.
func NewFileStorage(path string) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	log.Debug().Str("path", path).Msg("file storage initialized")

	return &FileStorage{path: path}, nil
}

// Path returns the location of the state file.
func (s *FileStorage) Path() string {
	return s.path
}

func (s *FileStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}

	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	values[key] = value

	return s.save(values)
}

func (s *FileStorage) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	changed := false
	for _, key := range keys {
		if _, ok := values[key]; ok {
			delete(values, key)
			changed = true
		}
	}

	if !changed {
		return nil
	}

	return s.save(values)
}

// load reads the state file. A missing or unparsable file reads as empty so
// that a damaged file is replaced on the next write.
func (s *FileStorage) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("state file is corrupt, treating as empty")
		return make(map[string]string), nil
	}

	return values, nil
}

// save writes the state file atomically.
func (s *FileStorage) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempPath := s.path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save state: %w", err)
	}

	return nil
}
