// Package blob stores raw video bytes and fetches them back for
// processing. Objects are keyed by the video's content identity.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Store interface {
	// Put writes the object and returns the URL it can be fetched from.
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Open(key string) (io.ReadSeekCloser, error)
	Delete(key string) error
}

// LocalStore keeps objects as files under a base directory and hands out
// URLs served by the API's blob route.
type LocalStore struct {
	baseDir string
	baseURL string
}

func NewLocalStore(baseDir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &LocalStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.baseDir, key)

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	return s.baseURL + "/blob/" + key, nil
}

func (s *LocalStore) Open(key string) (io.ReadSeekCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, key))
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	return file, nil
}

func (s *LocalStore) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.baseDir, key)); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	return nil
}

func validKey(key string) error {
	clean := filepath.Clean(key)
	if key == "" || clean != key || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid blob key: %q", key)
	}
	return nil
}
