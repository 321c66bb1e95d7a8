package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps each document as <dir>/<key>.json.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

var _ Backend = (*FileStore)(nil)

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load reads the document for key.
func (s *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

// Save writes the document through a temp file and rename.
func (s *FileStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmpFile, err := os.CreateTemp(s.dir, key+"-*.json")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync document: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(key)); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

// MemoryStore keeps documents in memory.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

var _ Backend = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

// Load returns a copy of the document for key.
func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save stores a copy of data under key.
func (s *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = append([]byte(nil), data...)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
