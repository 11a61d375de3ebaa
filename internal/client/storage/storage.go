package storage

import (
	"context"
	"crypto/cipher"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore is a CredentialStore backed by a JSON file. Values are sealed
// with the device AEAD; keys are stored in clear.
type FileStore struct {
	path string
	aead cipher.AEAD

	mu      sync.Mutex
	entries map[string]string
	version int64
}

type fileContents struct {
	Entries map[string]string `json:"entries"`
	Version int64             `json:"version"`
}

var _ CredentialStore = (*FileStore)(nil)

// NewFileStore opens the credential file at path, creating an empty store
// when it does not exist.
func NewFileStore(path string, aead cipher.AEAD) (*FileStore, error) {
	s := &FileStore{path: path, aead: aead}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.entries = make(map[string]string)
			s.version = 0
			return nil
		}
		return fmt.Errorf("open credentials: %w", err)
	}
	defer f.Close()

	var c fileContents
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return fmt.Errorf("decode credentials: %w", err)
	}
	s.entries = c.Entries
	if s.entries == nil {
		s.entries = make(map[string]string)
	}
	s.version = c.Version
	return nil
}

// save rewrites the file through a temporary file so readers never see a
// half-written store. Callers hold s.mu.
func (s *FileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(fileContents{Entries: s.entries, Version: s.version}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Get returns the value stored under key or ErrNotFound.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, ok := s.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	plain, err := open(s.aead, sealed)
	if err != nil {
		return "", fmt.Errorf("credential %q: %w", key, err)
	}
	return plain, nil
}

// Set stores value under key and persists the file.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	sealed, err := seal(s.aead, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	s.entries[key] = sealed
	s.version = time.Now().UnixNano()
	if err := s.save(); err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	if !had {
		return nil
	}
	delete(s.entries, key)
	s.version = time.Now().UnixNano()
	if err := s.save(); err != nil {
		s.entries[key] = prev
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}
