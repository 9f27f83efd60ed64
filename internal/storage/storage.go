package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

// Keys persisted by the application.
const (
	KeyBookmarks = "bookmarks"
	KeySettings  = "settings"
)

// ErrCorrupt is returned when persisted data exists but cannot be decoded.
var ErrCorrupt = errors.New("persisted state is corrupt")

// KV is the key-value persistence used by the collection store.
// Get of a missing key reports ok=false and no error. Set writes all entries
// or none of them.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, entries map[string][]byte) error
	Clear(ctx context.Context) error
	Close() error
}

// FileKV implements KV using a single JSON object file.
// Every Set rewrites the whole file through a rename, so readers never see a
// partial write.
type FileKV struct {
	path string
	mu   sync.Mutex
}

// NewFileKV creates a new FileKV with the given file path.
func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

// Path returns the storage file path.
func (s *FileKV) Path() string {
	return s.path
}

// Get returns the raw JSON stored under key.
func (s *FileKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return nil, false, err
	}
	value, ok := entries[key]
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

// Set merges entries into the file. Values must be valid JSON.
// A corrupt file is replaced rather than merged.
func (s *FileKV) Set(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return err
		}
		current = map[string]json.RawMessage{}
	}

	for key, value := range entries {
		if !json.Valid(value) {
			return fmt.Errorf("value for %q is not valid JSON", key)
		}
		current[key] = json.RawMessage(value)
	}
	return s.write(current)
}

// Clear removes every key.
func (s *FileKV) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(map[string]json.RawMessage{})
}

// Close is a no-op for files.
func (s *FileKV) Close() error {
	return nil
}

// read loads the file. Returns an empty map if the file doesn't exist.
func (s *FileKV) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if entries == nil {
		entries = map[string]json.RawMessage{}
	}
	return entries, nil
}

// write replaces the file atomically.
// Creates the directory if it doesn't exist.
func (s *FileKV) write(entries map[string]json.RawMessage) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return atomic.WriteFile(s.path, bytes.NewReader(data))
}
