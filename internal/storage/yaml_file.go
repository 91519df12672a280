package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const storeFileName = "store.yaml"

type yamlDocument struct {
	Version int               `yaml:"version"`
	Values  map[string]string `yaml:"values"`
}

// YAMLFile is a Store persisted as a single YAML document. Every Set rewrites
// the file through a temporary file and rename.
type YAMLFile struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// OpenYAMLFile loads the store at path. A missing file yields an empty store.
func OpenYAMLFile(path string) (*YAMLFile, error) {
	store := &YAMLFile{path: path, values: make(map[string]string)}

	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var document yamlDocument
	if err := yaml.Unmarshal(rawData, &document); err != nil {
		return nil, fmt.Errorf("parse store yaml: %w", err)
	}
	for key, value := range document.Values {
		store.values[key] = value
	}
	return store, nil
}

// DefaultYAMLPath returns the store location inside configDir for appName.
func DefaultYAMLPath(configDir, appName string) string {
	return filepath.Join(configDir, appName, storeFileName)
}

// Path returns the backing file path.
func (store *YAMLFile) Path() string {
	return store.path
}

// Get returns the value stored under key.
func (store *YAMLFile) Get(_ context.Context, key string) (string, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	value, ok := store.values[key]
	return value, ok, nil
}

// Set stores value under key and flushes the document to disk. The in-memory
// value is kept even when the write fails.
func (store *YAMLFile) Set(_ context.Context, key, value string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.values[key] = value
	return store.flushLocked()
}

func (store *YAMLFile) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(store.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	serialized, err := yaml.Marshal(yamlDocument{Version: 1, Values: store.values})
	if err != nil {
		return fmt.Errorf("marshal store yaml: %w", err)
	}

	tmpPath := store.path + ".tmp"
	if err := os.WriteFile(tmpPath, serialized, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	if err := os.Rename(tmpPath, store.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
