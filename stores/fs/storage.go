// Package fs provides a file system-based storage backend for authclient.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage persists values as a single JSON file on the filesystem. Writes
// are batched in memory and written out by Flush, which the client calls
// after every commit or removal.
type Storage struct {
	mu       sync.RWMutex
	path     string
	values   map[string]string
	modified bool
}

// storageFile is the JSON structure stored on disk.
type storageFile struct {
	Values map[string]string `json:"values"`
}

// NewStorage creates a file-backed storage. If path is empty, it defaults to
// ~/.config/<appName>/session.json.
func NewStorage(path string, appName string) (*Storage, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "authclient"
		}
		path = filepath.Join(configDir, appName, "session.json")
	}

	s := &Storage{
		path:   path,
		values: make(map[string]string),
	}

	// Load existing state if the file exists
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// load reads the stored values from disk.
func (s *Storage) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file storageFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse storage file: %w", err)
	}

	s.values = file.Values
	if s.values == nil {
		s.values = make(map[string]string)
	}

	return nil
}

// Get returns the value stored under key, or ok=false when absent.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key. The change is held in memory until Flush.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	s.modified = true

	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	s.modified = true

	return nil
}

// Flush writes pending changes to disk.
func (s *Storage) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.modified {
		return nil
	}

	// Ensure directory exists with restricted permissions
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	file := storageFile{Values: s.values}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	// Write with restricted permissions (owner read/write only)
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}

	s.modified = false
	return nil
}

// Path returns the path to the storage file.
func (s *Storage) Path() string {
	return s.path
}
