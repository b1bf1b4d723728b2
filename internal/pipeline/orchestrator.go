// Package pipeline drives jobs through the production stages. Each
// invocation processes at most one job: the most advanced claimable stage
// wins, so in-flight work drains before new jobs start. The orchestrator is
// the only layer that writes failure states; stage workers just return
// errors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge/internal/assembly"
	"github.com/reelforge/reelforge/internal/content"
	"github.com/reelforge/reelforge/internal/job"
	"github.com/reelforge/reelforge/internal/platform"
	"github.com/reelforge/reelforge/internal/playlist"
	"github.com/reelforge/reelforge/internal/storage"
	"github.com/reelforge/reelforge/internal/store"
)

// ErrMissingArtifact is returned when a job is claimed at a stage whose
// required input is absent from its data payload.
var ErrMissingArtifact = errors.New("pipeline: required artifact missing from job data")

// JobStore is the persistence surface the orchestrator needs.
type JobStore interface {
	ClaimOldestPending(ctx context.Context, stage job.Stage, accountFilter string) (*job.Job, error)
	Update(ctx context.Context, id string, p store.Partial) error
	MarkCompleted(ctx context.Context, id, remoteID string, meta store.UploadMetadata) error
	AutoRetryFailed(ctx context.Context) (int, error)
}

// Assembler produces the final video for a job.
type Assembler interface {
	Assemble(ctx context.Context, j *job.Job) (*assembly.Result, error)
}

// PlaylistResolver maps a canonical key to a remote playlist ID.
type PlaylistResolver interface {
	Resolve(ctx context.Context, key, title, description string) (string, error)
}

// Outcome is the structured result of one pipeline invocation.
type Outcome struct {
	// Processed reports whether a job was claimed this run.
	Processed bool
	// JobID identifies the processed job, empty on a no-op run.
	JobID string
	// Stage is the stage the job was processed at.
	Stage job.Stage
	// Failed reports that the job was marked failed this run.
	Failed bool
}

// Orchestrator wires the stage workers to the store and collaborators.
type Orchestrator struct {
	store    JobStore
	source   content.Source
	renderer content.FrameRenderer
	engine   Assembler
	platform platform.Client
	resolver PlaylistResolver
	objects  storage.ObjectStore
	logger   *slog.Logger

	// accountFilter narrows claims to one account when non-empty.
	accountFilter string
}

// New creates an Orchestrator.
func New(
	jobStore JobStore,
	source content.Source,
	renderer content.FrameRenderer,
	engine Assembler,
	client platform.Client,
	resolver PlaylistResolver,
	objects storage.ObjectStore,
	accountFilter string,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:         jobStore,
		source:        source,
		renderer:      renderer,
		engine:        engine,
		platform:      client,
		resolver:      resolver,
		objects:       objects,
		accountFilter: accountFilter,
		logger:        logger,
	}
}

// claimOrder drains late stages before starting new work.
var claimOrder = []job.Stage{job.StageUpload, job.StageAssembly, job.StageFrames, job.StageContent}

// RunOnce processes at most one job and returns a structured outcome. Failed
// jobs with recoverable artifacts are requeued at their checkpoint before
// claiming, so a single run both heals and progresses the queue. The error
// return covers infrastructure failures only; a job failing its stage is
// reported through the outcome after the failure is persisted.
func (o *Orchestrator) RunOnce(ctx context.Context) (Outcome, error) {
	requeued, err := o.store.AutoRetryFailed(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("auto retry failed jobs: %w", err)
	}
	if requeued > 0 {
		o.logger.Info("requeued failed jobs from checkpoints", slog.Int("count", requeued))
	}

	for _, stage := range claimOrder {
		j, err := o.store.ClaimOldestPending(ctx, stage, o.accountFilter)
		if err != nil {
			return Outcome{}, fmt.Errorf("claim job at stage %d: %w", stage, err)
		}
		if j == nil {
			continue
		}

		o.logger.Info("job claimed",
			slog.String("job_id", j.ID),
			slog.Int("stage", int(stage)),
		)

		if err := o.process(ctx, j, stage); err != nil {
			o.markFailed(ctx, j.ID, stage, err)
			return Outcome{Processed: true, JobID: j.ID, Stage: stage, Failed: true}, nil
		}
		return Outcome{Processed: true, JobID: j.ID, Stage: stage}, nil
	}

	o.logger.Debug("no eligible jobs")
	return Outcome{}, nil
}

func (o *Orchestrator) process(ctx context.Context, j *job.Job, stage job.Stage) error {
	switch stage {
	case job.StageContent:
		return o.runContent(ctx, j)
	case job.StageFrames:
		return o.runFrames(ctx, j)
	case job.StageAssembly:
		return o.runAssembly(ctx, j)
	case job.StageUpload:
		return o.runUpload(ctx, j)
	default:
		return fmt.Errorf("no worker for stage %d", stage)
	}
}

// markFailed is the single place a job's failed state is written. The store
// truncates the message to its persisted bound.
func (o *Orchestrator) markFailed(ctx context.Context, id string, stage job.Stage, cause error) {
	o.logger.Error("job failed",
		slog.String("job_id", id),
		slog.Int("stage", int(stage)),
		slog.String("error", cause.Error()),
	)

	failed := job.StatusFailed
	msg := cause.Error()
	if err := o.store.Update(ctx, id, store.Partial{Status: &failed, ErrorMessage: &msg}); err != nil {
		o.logger.Error("persisting failure state failed",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// advance moves a job to the next stage with the stage's output merged in.
func (o *Orchestrator) advance(ctx context.Context, id string, next job.Stage, data job.Data) error {
	status := job.PendingStatus(next)
	empty := ""
	return o.store.Update(ctx, id, store.Partial{
		Stage:        &next,
		Status:       &status,
		Data:         &data,
		ErrorMessage: &empty,
	})
}

func (o *Orchestrator) runContent(ctx context.Context, j *job.Job) error {
	c, err := o.source.Generate(ctx, j.Persona, j.Topic, j.Format)
	if err != nil {
		return fmt.Errorf("generate content: %w", err)
	}
	return o.advance(ctx, j.ID, job.StageFrames, job.Data{Content: c})
}

func (o *Orchestrator) runFrames(ctx context.Context, j *job.Job) error {
	if j.Data.Content == nil {
		return fmt.Errorf("%w: content", ErrMissingArtifact)
	}
	urls, err := o.renderer.Render(ctx, j.ID, j.Data.Content)
	if err != nil {
		return fmt.Errorf("render frames: %w", err)
	}
	return o.advance(ctx, j.ID, job.StageAssembly, job.Data{FrameURLs: urls})
}

func (o *Orchestrator) runAssembly(ctx context.Context, j *job.Job) error {
	res, err := o.engine.Assemble(ctx, j)
	if err != nil {
		return err
	}
	return o.advance(ctx, j.ID, job.StageUpload, job.Data{
		VideoURL:  res.VideoURL,
		VideoSize: res.VideoSize,
		AudioFile: res.AudioFile,
	})
}

// runUpload publishes the assembled video and completes the job. Playlist
// membership is best-effort: a resolve or add failure after a successful
// upload is logged, not fatal, because the video already exists remotely and
// retrying the whole stage would upload a duplicate.
func (o *Orchestrator) runUpload(ctx context.Context, j *job.Job) error {
	if j.Data.VideoURL == "" {
		return fmt.Errorf("%w: video URL", ErrMissingArtifact)
	}
	if j.Data.Content == nil {
		return fmt.Errorf("%w: content", ErrMissingArtifact)
	}
	c := j.Data.Content

	data, err := o.objects.Download(ctx, j.Data.VideoURL)
	if err != nil {
		return fmt.Errorf("download assembled video: %w", err)
	}

	videoID, err := o.platform.UploadVideo(ctx, data, platform.VideoMetadata{
		Title:       c.Title,
		Description: c.Description,
		Tags:        c.Tags,
	})
	if err != nil {
		return fmt.Errorf("upload video: %w", err)
	}

	playlistID := o.assignPlaylist(ctx, j, videoID)

	err = o.store.MarkCompleted(ctx, j.ID, videoID, store.UploadMetadata{
		Title:       c.Title,
		Description: c.Description,
		Tags:        c.Tags,
		PlaylistID:  playlistID,
	})
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	o.logger.Info("job completed",
		slog.String("job_id", j.ID),
		slog.String("video_id", videoID),
		slog.String("playlist_id", playlistID),
	)
	return nil
}

// assignPlaylist resolves the job's playlist and adds the video to it.
// Returns the playlist ID, or empty when resolution or membership failed.
func (o *Orchestrator) assignPlaylist(ctx context.Context, j *job.Job, videoID string) string {
	key := playlist.CanonicalKey(j.Account, j.Persona, j.Topic, j.Format)
	if key == "" {
		return ""
	}

	title := j.Topic
	if title == "" {
		title = j.Data.Content.Title
	}
	playlistID, err := o.resolver.Resolve(ctx, key, title, "Automated uploads: "+title)
	if err != nil {
		o.logger.Warn("playlist resolution failed, video published without playlist",
			slog.String("job_id", j.ID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return ""
	}

	if err := o.platform.AddToPlaylist(ctx, playlistID, videoID); err != nil {
		o.logger.Warn("adding video to playlist failed",
			slog.String("job_id", j.ID),
			slog.String("playlist_id", playlistID),
			slog.String("error", err.Error()),
		)
	}
	return playlistID
}
