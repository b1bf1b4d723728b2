// Package assembly turns a job's rendered frame images into a single
// uploaded vertical video: download frames, render one timed clip per frame,
// concatenate with an optional background track, upload the result. All
// intermediate files live in a per-invocation scratch directory that is
// removed no matter how the invocation ends.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/reelforge/reelforge/internal/job"
	"github.com/reelforge/reelforge/internal/media"
	"github.com/reelforge/reelforge/internal/playlist"
	"github.com/reelforge/reelforge/internal/storage"
)

// Static errors for assembly.
var (
	// ErrNoFrameURLs is returned when a job reaches assembly without frames.
	ErrNoFrameURLs = errors.New("assembly: job has no frame URLs")
	// ErrNoContent is returned when a job reaches assembly without content.
	ErrNoContent = errors.New("assembly: job has no content payload")
)

// Config holds the engine's filesystem and audio settings.
type Config struct {
	// TempRoot is the directory scratch directories are created under.
	// Empty means the OS temp directory.
	TempRoot string
	// AudioDir is the directory holding the background track pool.
	AudioDir string
	// AudioTracks is the pool of track file names to pick from at random.
	// Empty means videos are assembled without audio.
	AudioTracks []string
	// SaveDebugCopy persists the assembled video to DebugCopyDir before
	// upload. Failures here are logged, never fatal.
	SaveDebugCopy bool
	DebugCopyDir  string
}

// Result describes a finished assembly.
type Result struct {
	// VideoURL is the uploaded artifact's public URL.
	VideoURL string
	// VideoSize is the artifact size in bytes.
	VideoSize int64
	// AudioFile is the background track mixed in, or empty for none.
	AudioFile string
}

// Engine assembles videos for jobs. Safe for concurrent use.
type Engine struct {
	transcoder media.Transcoder
	store      storage.ObjectStore
	cfg        Config
	logger     *slog.Logger
}

// NewEngine creates an assembly engine.
func NewEngine(transcoder media.Transcoder, store storage.ObjectStore, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		transcoder: transcoder,
		store:      store,
		cfg:        cfg,
		logger:     logger,
	}
}

// Assemble produces and uploads the video for j. The first error aborts all
// remaining work and no partial state survives: the scratch directory is
// removed on every exit path, and a retried job restarts assembly from
// scratch including frame downloads.
func (e *Engine) Assemble(ctx context.Context, j *job.Job) (*Result, error) {
	if len(j.Data.FrameURLs) == 0 {
		return nil, ErrNoFrameURLs
	}
	if j.Data.Content == nil {
		return nil, ErrNoContent
	}

	scratch := filepath.Join(e.tempRoot(), "assembly-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0o750); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			e.logger.Error("scratch dir cleanup failed",
				slog.String("dir", scratch),
				slog.String("error", err.Error()),
			)
		}
	}()

	framePaths, err := e.downloadFrames(ctx, scratch, j.Data.FrameURLs)
	if err != nil {
		return nil, err
	}

	clipPaths, err := e.renderClips(ctx, scratch, framePaths, j.Data.Content)
	if err != nil {
		return nil, err
	}

	audioPath, audioFile := e.pickAudio()

	outPath := filepath.Join(scratch, "final.mp4")
	if err := e.transcoder.ConcatClips(ctx, clipPaths, audioPath, outPath); err != nil {
		return nil, fmt.Errorf("concatenate clips: %w", err)
	}

	data, err := os.ReadFile(outPath) // #nosec G304 - path is engine-owned
	if err != nil {
		return nil, fmt.Errorf("read assembled video: %w", err)
	}

	e.saveDebugCopy(j.ID, data)

	uploaded, err := e.store.Upload(ctx, objectKey(j), data, "video/mp4")
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}

	e.logger.Info("video assembled",
		slog.String("job_id", j.ID),
		slog.Int("frames", len(framePaths)),
		slog.Int64("size", uploaded.Size),
		slog.String("audio", audioFile),
	)

	return &Result{
		VideoURL:  uploaded.URL,
		VideoSize: uploaded.Size,
		AudioFile: audioFile,
	}, nil
}

// downloadFrames fetches all frame images concurrently into scratch. Names
// are zero-padded so on-disk order matches frame order.
func (e *Engine) downloadFrames(ctx context.Context, scratch string, urls []string) ([]string, error) {
	paths := make([]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	for i, url := range urls {
		paths[i] = filepath.Join(scratch, fmt.Sprintf("frame-%03d.png", i))
		g.Go(func() error {
			data, err := e.store.Download(gctx, url)
			if err != nil {
				return fmt.Errorf("download frame %d: %w", i, err)
			}
			if err := os.WriteFile(paths[i], data, 0o600); err != nil {
				return fmt.Errorf("write frame %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// renderClips renders one clip per frame, strictly in order. Concatenation
// is order-sensitive so there is no parallelism here.
func (e *Engine) renderClips(ctx context.Context, scratch string, framePaths []string, c *job.Content) ([]string, error) {
	clipPaths := make([]string, len(framePaths))
	for i, framePath := range framePaths {
		seconds := ClipDuration(i+1, c, c.Layout)
		clipPath := filepath.Join(scratch, fmt.Sprintf("clip-%03d.mp4", i))

		if err := e.transcoder.RenderStillClip(ctx, framePath, clipPath, seconds); err != nil {
			if errors.Is(err, media.ErrTimeout) {
				return nil, fmt.Errorf("Frame %d processing timed out: %w", i, err)
			}
			return nil, fmt.Errorf("render frame %d: %w", i, err)
		}
		clipPaths[i] = clipPath
	}
	return clipPaths, nil
}

// pickAudio chooses a random track from the pool. A missing file downgrades
// to a silent video instead of failing the job.
func (e *Engine) pickAudio() (path, name string) {
	if len(e.cfg.AudioTracks) == 0 {
		return "", ""
	}
	name = e.cfg.AudioTracks[rand.IntN(len(e.cfg.AudioTracks))]
	path = filepath.Join(e.cfg.AudioDir, name)
	if _, err := os.Stat(path); err != nil {
		e.logger.Warn("audio track missing, assembling without audio",
			slog.String("track", name),
			slog.String("error", err.Error()),
		)
		return "", ""
	}
	return path, name
}

func (e *Engine) saveDebugCopy(jobID string, data []byte) {
	if !e.cfg.SaveDebugCopy {
		return
	}
	dir := e.cfg.DebugCopyDir
	if dir == "" {
		dir = e.tempRoot()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		e.logger.Warn("debug copy dir creation failed", slog.String("error", err.Error()))
		return
	}
	path := filepath.Join(dir, jobID+".mp4")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		e.logger.Warn("debug copy write failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	e.logger.Debug("debug copy saved", slog.String("path", path))
}

func (e *Engine) tempRoot() string {
	if e.cfg.TempRoot != "" {
		return e.cfg.TempRoot
	}
	return os.TempDir()
}

// objectKey derives the deterministic storage key for a job's video from its
// identity fields, so re-uploads of the same job overwrite rather than pile up.
func objectKey(j *job.Job) string {
	parts := playlist.CanonicalKey(j.Account, j.Persona, j.Topic, "")
	if parts == "" {
		return fmt.Sprintf("videos/%s.mp4", j.ID)
	}
	return fmt.Sprintf("videos/%s/%s.mp4", parts, j.ID)
}
