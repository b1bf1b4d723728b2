// Package platform provides the client for the remote video-hosting
// platform: video uploads, playlist creation and listing, and playlist
// membership.
package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Static errors for platform client operations.
var (
	// ErrBaseURLRequired is returned when the base URL is not provided.
	ErrBaseURLRequired = errors.New("platform: base URL is required")
	// ErrAPIKeyRequired is returned when no API key is configured.
	ErrAPIKeyRequired = errors.New("platform: API key is required")
	// ErrNoVideoIDReturned is returned when an upload response has no video ID.
	ErrNoVideoIDReturned = errors.New("platform: upload succeeded but no video ID returned")
	// ErrNoPlaylistIDReturned is returned when a create response has no playlist ID.
	ErrNoPlaylistIDReturned = errors.New("platform: playlist created but no ID returned")
	// ErrRequestFailed is returned when the platform rejects a request.
	ErrRequestFailed = errors.New("platform: request failed")
)

// Client defines the interface for the remote video platform.
type Client interface {
	// UploadVideo publishes a video and returns its remote ID.
	UploadVideo(ctx context.Context, video []byte, meta VideoMetadata) (string, error)

	// CreatePlaylist creates a collection and returns its remote ID.
	CreatePlaylist(ctx context.Context, title, description string) (string, error)

	// ListPlaylists returns all of the account's collections.
	ListPlaylists(ctx context.Context) ([]Playlist, error)

	// AddToPlaylist adds a published video to a collection.
	AddToPlaylist(ctx context.Context, playlistID, videoID string) error
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// NewClient creates a new platform HTTP client.
func NewClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &HTTPClient{
		baseURL: baseURL,
		// Uploads carry whole videos; give them room.
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	return c, nil
}

// UploadVideo publishes a video and returns its remote ID.
func (c *HTTPClient) UploadVideo(ctx context.Context, video []byte, meta VideoMetadata) (string, error) {
	req := uploadVideoRequest{
		VideoBase64: base64.StdEncoding.EncodeToString(video),
		Metadata:    meta,
	}
	var resp uploadVideoResponse
	if err := c.doRequest(ctx, http.MethodPost, "/videos", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", ErrNoVideoIDReturned
	}
	return resp.ID, nil
}

// CreatePlaylist creates a collection and returns its remote ID.
func (c *HTTPClient) CreatePlaylist(ctx context.Context, title, description string) (string, error) {
	req := createPlaylistRequest{Title: title, Description: description}
	var resp createPlaylistResponse
	if err := c.doRequest(ctx, http.MethodPost, "/playlists", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", ErrNoPlaylistIDReturned
	}
	return resp.ID, nil
}

// ListPlaylists returns all of the account's collections.
func (c *HTTPClient) ListPlaylists(ctx context.Context) ([]Playlist, error) {
	var resp listPlaylistsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/playlists", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Playlists, nil
}

// AddToPlaylist adds a published video to a collection.
func (c *HTTPClient) AddToPlaylist(ctx context.Context, playlistID, videoID string) error {
	path := fmt.Sprintf("/playlists/%s/videos", playlistID)
	return c.doRequest(ctx, http.MethodPost, path, addToPlaylistRequest{VideoID: videoID}, nil)
}

// doRequest performs a JSON request against the platform API and decodes
// the response into out when non-nil.
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		msg := ""
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil {
			msg = errResp.Error
		}
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrRequestFailed, method, path, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
