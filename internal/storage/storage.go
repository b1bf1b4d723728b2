// Package storage provides the object storage port used for frame downloads
// and final video delivery, with S3 and local-disk implementations.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// UploadResult describes a stored object.
type UploadResult struct {
	// URL is the publicly reachable location of the object.
	URL string
	// Size is the stored object size in bytes.
	Size int64
}

// ObjectStore defines the interface for the object storage / CDN
// collaborator: plain byte downloads by URL and keyed uploads.
type ObjectStore interface {
	// Download fetches the object at url and returns its bytes.
	Download(ctx context.Context, url string) ([]byte, error)

	// Upload stores data under key and returns its public URL and size.
	Upload(ctx context.Context, key string, data []byte, contentType string) (UploadResult, error)
}

// httpDownload fetches url with the given client. Both implementations share
// it: frame URLs point at a CDN, not necessarily at the store's own bucket.
func httpDownload(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download body: %w", err)
	}
	return body, nil
}
