package platform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrBaseURLRequired)

	_, err = NewClient("https://api.example.com")
	assert.ErrorIs(t, err, ErrAPIKeyRequired)

	c, err := NewClient("https://api.example.com", WithAPIKey("key"))
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestUploadVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req uploadVideoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		decoded, err := base64.StdEncoding.DecodeString(req.VideoBase64)
		require.NoError(t, err)
		assert.Equal(t, []byte("video-bytes"), decoded)
		assert.Equal(t, "Five facts", req.Metadata.Title)

		_ = json.NewEncoder(w).Encode(uploadVideoResponse{ID: "yt-123"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithAPIKey("test-key"))
	require.NoError(t, err)

	id, err := c.UploadVideo(context.Background(), []byte("video-bytes"), VideoMetadata{
		Title: "Five facts",
		Tags:  []string{"history"},
	})
	require.NoError(t, err)
	assert.Equal(t, "yt-123", id)
}

func TestUploadVideo_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(uploadVideoResponse{})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithAPIKey("k"))
	require.NoError(t, err)

	_, err = c.UploadVideo(context.Background(), []byte("v"), VideoMetadata{Title: "t"})
	assert.ErrorIs(t, err, ErrNoVideoIDReturned)
}

func TestCreatePlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/playlists", r.URL.Path)

		var req createPlaylistRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "History Shorts", req.Title)
		assert.Contains(t, req.Description, "managed-by")

		_ = json.NewEncoder(w).Encode(createPlaylistResponse{ID: "pl-9"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithAPIKey("k"))
	require.NoError(t, err)

	id, err := c.CreatePlaylist(context.Background(), "History Shorts", "Shorts [managed-by:reelforge; key:x]")
	require.NoError(t, err)
	assert.Equal(t, "pl-9", id)
}

func TestListPlaylists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_ = json.NewEncoder(w).Encode(listPlaylistsResponse{Playlists: []Playlist{
			{ID: "pl-1", Title: "A", Description: "d1"},
			{ID: "pl-2", Title: "B", Description: "d2"},
		}})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithAPIKey("k"))
	require.NoError(t, err)

	playlists, err := c.ListPlaylists(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists, 2)
	assert.Equal(t, "pl-1", playlists[0].ID)
}

func TestAddToPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/playlists/pl-9/videos", r.URL.Path)
		var req addToPlaylistRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "yt-123", req.VideoID)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithAPIKey("k"))
	require.NoError(t, err)

	assert.NoError(t, c.AddToPlaylist(context.Background(), "pl-9", "yt-123"))
}

func TestDoRequest_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "quota exceeded"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithAPIKey("k"))
	require.NoError(t, err)

	_, err = c.ListPlaylists(context.Background())
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
}
