package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Compile-time check that LocalStore implements ObjectStore.
var _ ObjectStore = (*LocalStore)(nil)

// LocalStore implements ObjectStore on local disk. Suitable for development
// and testing; swap for S3Store in production.
type LocalStore struct {
	rootDir    string
	httpClient *http.Client
}

// NewLocalStore creates a LocalStore rooted at rootDir.
// The directory is created if it doesn't exist.
func NewLocalStore(rootDir string) (*LocalStore, error) {
	if rootDir == "" {
		rootDir = filepath.Join(os.TempDir(), "reelforge-objects")
	}
	if err := os.MkdirAll(rootDir, 0750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{
		rootDir:    rootDir,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Download fetches url. HTTP URLs go over the network; anything else is
// treated as a path inside the store (useful in tests and local runs).
func (s *LocalStore) Download(ctx context.Context, url string) ([]byte, error) {
	if len(url) > 4 && url[:4] == "http" {
		return httpDownload(ctx, s.httpClient, url)
	}

	path := filepath.Join(s.rootDir, filepath.Clean("/"+url))
	data, err := os.ReadFile(path) // #nosec G304 - path is rooted in the store directory
	if err != nil {
		return nil, fmt.Errorf("read local object: %w", err)
	}
	return data, nil
}

// Upload writes data under key inside the store root.
func (s *LocalStore) Upload(_ context.Context, key string, data []byte, _ string) (UploadResult, error) {
	path := filepath.Join(s.rootDir, filepath.Clean("/"+key))
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return UploadResult{}, fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return UploadResult{}, fmt.Errorf("write local object: %w", err)
	}
	return UploadResult{URL: path, Size: int64(len(data))}, nil
}
