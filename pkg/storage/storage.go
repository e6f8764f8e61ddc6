package storage

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrEmptyKey is returned when a store is called with a blank key.
var ErrEmptyKey = errors.New("storage key is required")

// Store is the string-keyed persistence surface used for template and
// recent-recipient lists. Get returns nil, nil for a missing key; Set
// overwrites the whole value.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// FileStore keeps one YAML document per key under a root directory
type FileStore struct {
	rootDir string
	mu      sync.Mutex
}

// entry is the on-disk representation of a stored value
type entry struct {
	Key       string    `yaml:"key"`
	UpdatedAt time.Time `yaml:"updated_at"`
	Value     string    `yaml:"value"`
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &FileStore{rootDir: dir}, nil
}

// Get loads the value stored under key
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var e entry
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", key, err)
	}

	return []byte(e.Value), nil
}

// Set writes value under key, replacing any previous value
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := yaml.Marshal(entry{
		Key:       key,
		UpdatedAt: time.Now(),
		Value:     string(value),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to a temp file first so a crash never leaves a truncated document
	path := s.pathFor(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	return nil
}

// pathFor maps a key to a file name that is safe on every filesystem
func (s *FileStore) pathFor(key string) string {
	return filepath.Join(s.rootDir, fmt.Sprintf("kv_%s.yaml", fileID(key)))
}

// fileID generates a file-safe identifier from a key
func fileID(key string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, key)

	// If too long or lossy, use hash
	if len(clean) > 50 || clean != key {
		h := md5.New()
		h.Write([]byte(key))
		return fmt.Sprintf("%s_%x", truncate(clean, 16), h.Sum(nil))
	}

	return clean
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
