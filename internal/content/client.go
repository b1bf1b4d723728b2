// Package content provides clients for the two upstream collaborators the
// pipeline consumes as black boxes: the content source that generates a
// content payload for a (persona, topic, format) triple, and the frame
// renderer that turns a content payload into hosted frame images.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reelforge/reelforge/internal/job"
)

// Static errors for collaborator clients.
var (
	// ErrBaseURLRequired is returned when a client is built without a base URL.
	ErrBaseURLRequired = errors.New("content: base URL is required")
	// ErrNoFrames is returned when the renderer reports zero frames.
	ErrNoFrames = errors.New("content: renderer returned no frames")
	// ErrRequestFailed is returned when a collaborator rejects a request.
	ErrRequestFailed = errors.New("content: request failed")
)

// Source generates the content payload for a job.
type Source interface {
	Generate(ctx context.Context, persona, topic, format string) (*job.Content, error)
}

// FrameRenderer renders a content payload into hosted frame image URLs.
type FrameRenderer interface {
	Render(ctx context.Context, jobID string, c *job.Content) ([]string, error)
}

// SourceClient is the HTTP implementation of Source.
type SourceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSourceClient creates a content source client.
func NewSourceClient(baseURL string) (*SourceClient, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	return &SourceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type generateRequest struct {
	Persona string `json:"persona"`
	Topic   string `json:"topic"`
	Format  string `json:"format"`
}

// Generate requests a content payload for the given persona/topic/format.
func (c *SourceClient) Generate(ctx context.Context, persona, topic, format string) (*job.Content, error) {
	var out job.Content
	err := postJSON(ctx, c.httpClient, c.baseURL+"/generate",
		generateRequest{Persona: persona, Topic: topic, Format: format}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RendererClient is the HTTP implementation of FrameRenderer.
type RendererClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRendererClient creates a frame renderer client.
func NewRendererClient(baseURL string) (*RendererClient, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	return &RendererClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type renderRequest struct {
	JobID   string       `json:"job_id"`
	Content *job.Content `json:"content"`
}

type renderResponse struct {
	FrameURLs []string `json:"frame_urls"`
}

// Render renders content into hosted frame images and returns their URLs
// in frame order.
func (c *RendererClient) Render(ctx context.Context, jobID string, content *job.Content) ([]string, error) {
	var out renderResponse
	err := postJSON(ctx, c.httpClient, c.baseURL+"/render",
		renderRequest{JobID: jobID, Content: content}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.FrameURLs) == 0 {
		return nil, ErrNoFrames
	}
	return out.FrameURLs, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: %s: status %d: %s", ErrRequestFailed, url, resp.StatusCode, tail)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
