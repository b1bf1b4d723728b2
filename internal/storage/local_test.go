package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestLocalStore_UploadDownloadRoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	ctx := context.Background()

	res, err := s.Upload(ctx, "videos/main/clip.mp4", []byte("video-bytes"), "video/mp4")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Size != int64(len("video-bytes")) {
		t.Errorf("Size = %d", res.Size)
	}
	if _, err := os.Stat(res.URL); err != nil {
		t.Fatalf("uploaded object not on disk: %v", err)
	}

	got, err := s.Download(ctx, "videos/main/clip.mp4")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(got) != "video-bytes" {
		t.Errorf("Download() = %q", got)
	}
}

func TestLocalStore_DownloadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("frame-bytes"))
	}))
	defer srv.Close()

	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	got, err := s.Download(context.Background(), srv.URL+"/frame.png")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(got) != "frame-bytes" {
		t.Errorf("Download() = %q", got)
	}
}

func TestLocalStore_DownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	if _, err := s.Download(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestNewS3Store(t *testing.T) {
	cfg := S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}

	s, err := NewS3Store(cfg)
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}
	if s.bucket != cfg.Bucket {
		t.Errorf("bucket = %v, want %v", s.bucket, cfg.Bucket)
	}
	if s.region != cfg.Region {
		t.Errorf("region = %v, want %v", s.region, cfg.Region)
	}
}
