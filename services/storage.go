package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ObjectStore holds uploaded and generated file content. The workflow engine
// only stores and forwards locator strings; it never inspects file bytes.
type ObjectStore interface {
	Put(path string, data []byte) (string, error)
	SignedURL(locator string, ttl time.Duration) (string, error)
}

// LocalObjectStore keeps files on the local filesystem under Root. The
// locator is the path relative to Root.
type LocalObjectStore struct {
	Root string
}

func NewLocalObjectStore(root string) *LocalObjectStore {
	return &LocalObjectStore{Root: root}
}

func (s *LocalObjectStore) Put(path string, data []byte) (string, error) {
	full := filepath.Join(s.Root, filepath.Clean(path))
	if err := os.MkdirAll(filepath.Dir(full), os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return filepath.ToSlash(filepath.Clean(path)), nil
}

// SignedURL for the local store is simply the served file path. The ttl is
// accepted for contract compatibility and ignored.
func (s *LocalObjectStore) SignedURL(locator string, ttl time.Duration) (string, error) {
	full := filepath.Join(s.Root, filepath.Clean(locator))
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("file not found: %w", err)
	}
	return "/files/" + filepath.ToSlash(filepath.Clean(locator)), nil
}
