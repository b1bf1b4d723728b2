// Package media wraps ffmpeg for the two operations the assembly pipeline
// needs: rendering a still image into a timed vertical clip, and
// concatenating clips with an optional background audio mix. Every
// invocation runs under a hard wall-clock timeout and captures stderr so
// failures carry the tool's diagnostics.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Output geometry for vertical short-form video.
const (
	FrameWidth  = 1080
	FrameHeight = 1920
)

// Hard wall-clock timeouts per invocation. A subprocess exceeding its
// timeout is killed via context cancellation.
const (
	// ClipTimeout bounds a single still-image clip render.
	ClipTimeout = 40 * time.Second
	// ConcatTimeout bounds the final concatenation pass.
	ConcatTimeout = 30 * time.Second
)

// stderrTailLen bounds how much captured stderr is folded into errors.
const stderrTailLen = 400

// Static errors for media operations.
var (
	// ErrTimeout is returned when an ffmpeg invocation exceeds its hard timeout.
	ErrTimeout = errors.New("media: ffmpeg timed out")
	// ErrInvalidDuration is returned when a clip duration is not positive.
	ErrInvalidDuration = errors.New("media: invalid duration: must be positive")
	// ErrNoClips is returned when no clip paths are provided for concatenation.
	ErrNoClips = errors.New("media: no clip paths provided")
)

// Transcoder is the port the assembly engine renders through.
type Transcoder interface {
	// RenderStillClip loops a still image into a clip of the given
	// duration at the fixed vertical resolution, letterboxed to fit.
	RenderStillClip(ctx context.Context, imagePath, outPath string, seconds float64) error

	// ConcatClips concatenates clips in order into outPath, re-muxing
	// without re-encoding video. When audioPath is non-empty the track is
	// mixed in at reduced volume and output is truncated to the shorter
	// of video and audio.
	ConcatClips(ctx context.Context, clipPaths []string, audioPath, outPath string) error
}

// FFmpeg implements Transcoder using the ffmpeg CLI.
type FFmpeg struct {
	// binPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	binPath       string
	clipTimeout   time.Duration
	concatTimeout time.Duration
}

// Option configures an FFmpeg instance.
type Option func(*FFmpeg)

// WithTimeouts overrides the per-invocation timeouts. Used by tests to
// exercise the kill path without waiting out the real limits.
func WithTimeouts(clip, concat time.Duration) Option {
	return func(f *FFmpeg) {
		f.clipTimeout = clip
		f.concatTimeout = concat
	}
}

// NewFFmpeg creates a new FFmpeg transcoder.
// If binPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpeg(binPath string, opts ...Option) *FFmpeg {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	f := &FFmpeg{
		binPath:       binPath,
		clipTimeout:   ClipTimeout,
		concatTimeout: ConcatTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RenderStillClip loops imagePath for the given duration into outPath.
// The image is scaled to fit 1080x1920 preserving aspect ratio, centered,
// and padded with black.
func (f *FFmpeg) RenderStillClip(ctx context.Context, imagePath, outPath string, seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidDuration, seconds)
	}

	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
		FrameWidth, FrameHeight, FrameWidth, FrameHeight,
	)

	args := []string{
		"-y",
		"-loop", "1",
		"-i", imagePath,
		"-t", fmt.Sprintf("%.2f", seconds),
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "28",
		"-pix_fmt", "yuv420p",
		"-r", "30",
		outPath,
	}

	return f.run(ctx, f.clipTimeout, args)
}

// ConcatClips concatenates clipPaths in order using the concat demuxer with
// stream copy. A non-empty audioPath is mixed in at 20% volume; -shortest
// truncates to the shorter of video and audio.
func (f *FFmpeg) ConcatClips(ctx context.Context, clipPaths []string, audioPath, outPath string) error {
	if len(clipPaths) == 0 {
		return ErrNoClips
	}

	listFile, err := writeConcatList(filepath.Dir(outPath), clipPaths)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer func() { _ = os.Remove(listFile) }()

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
	}
	if audioPath != "" {
		args = append(args,
			"-i", audioPath,
			"-filter:a", "volume=0.2",
			"-c:v", "copy",
			"-c:a", "aac",
			"-shortest",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, outPath)

	return f.run(ctx, f.concatTimeout, args)
}

// writeConcatList writes the ordered file list the concat demuxer reads.
// The list lives next to the output so scratch-dir cleanup removes it too.
func writeConcatList(dir string, clipPaths []string) (string, error) {
	tmp, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = tmp.Close() }()

	for _, path := range clipPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("get absolute path for %s: %w", path, err)
		}
		escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")
		if _, err := fmt.Fprintf(tmp, "file '%s'\n", escapedPath); err != nil {
			return "", fmt.Errorf("write to concat list: %w", err)
		}
	}

	return tmp.Name(), nil
}

// run executes ffmpeg under the given timeout and returns an error carrying
// the tail of stderr if the command fails. Timeout kills the subprocess and
// yields an error wrapping ErrTimeout.
func (f *FFmpeg) run(ctx context.Context, timeout time.Duration, args []string) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 - binPath is set by the application, not user input
	cmd := exec.CommandContext(runCtx, f.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, StderrTail(stderr.String()))
		}
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: StderrTail(stderr.String()),
			Err:    err,
		}
	}

	return nil
}

// StderrTail returns the last portion of captured stderr, bounded so error
// messages stay readable and storable.
func StderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrTailLen {
		return s
	}
	return s[len(s)-stderrTailLen:]
}

// FFmpegError represents a non-zero ffmpeg exit, including the stderr tail.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v, stderr: %s", e.Err, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
