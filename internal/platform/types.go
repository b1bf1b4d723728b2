package platform

// VideoMetadata describes a video being published.
type VideoMetadata struct {
	// Title is the video title shown on the platform.
	Title string `json:"title"`
	// Description is the video description.
	Description string `json:"description,omitempty"`
	// Tags are the platform search tags.
	Tags []string `json:"tags,omitempty"`
}

// Playlist is a remote collection as returned by the platform.
type Playlist struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// uploadVideoRequest is the wire format for video uploads.
type uploadVideoRequest struct {
	VideoBase64 string        `json:"video_base64"`
	Metadata    VideoMetadata `json:"metadata"`
}

// uploadVideoResponse is the wire format of a successful upload.
type uploadVideoResponse struct {
	ID string `json:"id"`
}

// createPlaylistRequest is the wire format for playlist creation.
type createPlaylistRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// createPlaylistResponse is the wire format of a successful creation.
type createPlaylistResponse struct {
	ID string `json:"id"`
}

// listPlaylistsResponse is the wire format of a playlist listing.
type listPlaylistsResponse struct {
	Playlists []Playlist `json:"playlists"`
}

// addToPlaylistRequest is the wire format for adding a video to a playlist.
type addToPlaylistRequest struct {
	VideoID string `json:"video_id"`
}

// errorResponse is the platform's error envelope.
type errorResponse struct {
	Error string `json:"error"`
}
