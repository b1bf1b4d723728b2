// Package job provides the Job record tracked through the video pipeline.
// A job advances through five stages (content, frames, assembly, upload,
// done) and accumulates per-stage output in its Data payload. Checkpoint
// recovery derives the resumable stage from which artifacts are present
// rather than trusting the stage recorded at failure time.
package job

import (
	"time"
)

// Stage is an integer checkpoint indicating how far a job has progressed.
type Stage int

const (
	// StageContent generates the content payload for the job.
	StageContent Stage = 1
	// StageFrames renders the frame images for the content.
	StageFrames Stage = 2
	// StageAssembly assembles the frames into the final video.
	StageAssembly Stage = 3
	// StageUpload publishes the video to the remote platform.
	StageUpload Stage = 4
	// StageDone is the terminal stage of a completed job.
	StageDone Stage = 5
)

// Status represents the current phase of a Job.
type Status string

const (
	// StatusContentPending indicates the job is waiting for content generation.
	StatusContentPending Status = "content_pending"
	// StatusFramesPending indicates the job is waiting for frame rendering.
	StatusFramesPending Status = "frames_pending"
	// StatusAssemblyPending indicates the job is waiting for video assembly.
	StatusAssemblyPending Status = "assembly_pending"
	// StatusUploadPending indicates the job is waiting for the platform upload.
	StatusUploadPending Status = "upload_pending"
	// StatusCompleted indicates the job finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the job encountered an error during a stage.
	StatusFailed Status = "failed"

	// Processing statuses mark a claimed job so a second pipeline
	// invocation cannot select the same row.

	// StatusContentProcessing indicates content generation is in flight.
	StatusContentProcessing Status = "content_processing"
	// StatusFramesProcessing indicates frame rendering is in flight.
	StatusFramesProcessing Status = "frames_processing"
	// StatusAssemblyProcessing indicates video assembly is in flight.
	StatusAssemblyProcessing Status = "assembly_processing"
	// StatusUploadProcessing indicates the platform upload is in flight.
	StatusUploadProcessing Status = "upload_processing"
)

// MaxErrorMessageLen bounds the persisted error message length.
const MaxErrorMessageLen = 500

// PendingStatus returns the pending status that makes a job claimable at
// the given stage.
func PendingStatus(s Stage) Status {
	switch s {
	case StageContent:
		return StatusContentPending
	case StageFrames:
		return StatusFramesPending
	case StageAssembly:
		return StatusAssemblyPending
	case StageUpload:
		return StatusUploadPending
	default:
		return StatusCompleted
	}
}

// ProcessingStatus returns the in-flight status a claimed job is stamped
// with at the given stage.
func ProcessingStatus(s Stage) Status {
	switch s {
	case StageContent:
		return StatusContentProcessing
	case StageFrames:
		return StatusFramesProcessing
	case StageAssembly:
		return StatusAssemblyProcessing
	case StageUpload:
		return StatusUploadProcessing
	default:
		return StatusCompleted
	}
}

// PendingFor maps a processing status back to its pending counterpart.
// Used to requeue jobs stranded in a processing status by a crash.
func PendingFor(s Status) (Status, bool) {
	switch s {
	case StatusContentProcessing:
		return StatusContentPending, true
	case StatusFramesProcessing:
		return StatusFramesPending, true
	case StatusAssemblyProcessing:
		return StatusAssemblyPending, true
	case StatusUploadProcessing:
		return StatusUploadPending, true
	default:
		return "", false
	}
}

// Layout hints for the content payload.
const (
	// LayoutStandard is the multi-frame pacing layout.
	LayoutStandard = "standard"
	// LayoutSimplified is the single-frame layout.
	LayoutSimplified = "simplified"
)

// ContentFrame is one frame's worth of generated text.
type ContentFrame struct {
	// Text is the copy rendered onto the frame.
	Text string `json:"text"`
	// Seconds is an optional per-frame duration hint from the content
	// service. Zero means "use the positional default".
	Seconds float64 `json:"seconds,omitempty"`
}

// Content is the generated content payload for a job. It is produced by the
// content source collaborator and consumed to compute frame timing and
// upload metadata.
type Content struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Layout      string         `json:"layout,omitempty"`
	Frames      []ContentFrame `json:"frames,omitempty"`
}

// Data is the per-job artifact accumulator. Each stage fills in its own
// fields and never clears an earlier stage's output; that monotonicity is
// what makes checkpoint recovery possible.
type Data struct {
	// Content is written by the content stage.
	Content *Content `json:"content,omitempty"`
	// FrameURLs is written by the frame rendering stage.
	FrameURLs []string `json:"frameUrls,omitempty"`
	// VideoURL, VideoSize and AudioFile are written by the assembly stage.
	VideoURL  string `json:"videoUrl,omitempty"`
	VideoSize int64  `json:"videoSize,omitempty"`
	AudioFile string `json:"audioFile,omitempty"`
	// VideoID and PlaylistID are written by the upload stage.
	VideoID    string `json:"youtubeVideoId,omitempty"`
	PlaylistID string `json:"playlistId,omitempty"`
}

// Merge returns a copy of d with the non-zero fields of in applied on top.
// Fields absent from in are preserved, so a partial update mid-pipeline can
// never erase an earlier stage's output.
func (d Data) Merge(in Data) Data {
	out := d
	if in.Content != nil {
		out.Content = in.Content
	}
	if len(in.FrameURLs) > 0 {
		out.FrameURLs = in.FrameURLs
	}
	if in.VideoURL != "" {
		out.VideoURL = in.VideoURL
	}
	if in.VideoSize != 0 {
		out.VideoSize = in.VideoSize
	}
	if in.AudioFile != "" {
		out.AudioFile = in.AudioFile
	}
	if in.VideoID != "" {
		out.VideoID = in.VideoID
	}
	if in.PlaylistID != "" {
		out.PlaylistID = in.PlaylistID
	}
	return out
}

// Checkpoint derives the most advanced resumable stage from the artifacts
// present in the data. The checks run in ascending order so the last match
// wins: a job holding both content and frame URLs resumes at assembly, and
// one holding a video URL resumes at upload regardless of earlier fields.
// ok is false when no artifact is present, meaning the job cannot be
// resumed safely.
func (d Data) Checkpoint() (stage Stage, status Status, ok bool) {
	if d.Content != nil {
		stage, status, ok = StageFrames, StatusFramesPending, true
	}
	if len(d.FrameURLs) > 0 {
		stage, status, ok = StageAssembly, StatusAssemblyPending, true
	}
	if d.VideoURL != "" {
		stage, status, ok = StageUpload, StatusUploadPending, true
	}
	return stage, status, ok
}

// Job is one unit of pipeline work.
type Job struct {
	// ID is the unique identifier for this job.
	ID string
	// Account is the publishing account the job belongs to.
	Account string
	// Persona is the content persona used for generation.
	Persona string
	// Topic is the subject of the content.
	Topic string
	// Format is the content format (e.g. "shorts").
	Format string
	// Stage is the current pipeline checkpoint (1..5).
	Stage Stage
	// Status is the current phase name.
	Status Status
	// ErrorMessage holds the bounded failure message, empty otherwise.
	ErrorMessage string
	// Data is the per-stage artifact accumulator.
	Data Data
	// CreatedAt is immutable and drives FIFO job selection.
	CreatedAt time.Time
	// UpdatedAt is bumped on every mutation.
	UpdatedAt time.Time
}

// TruncateError bounds an error message to MaxErrorMessageLen characters.
func TruncateError(msg string) string {
	if len(msg) <= MaxErrorMessageLen {
		return msg
	}
	return msg[:MaxErrorMessageLen]
}
