// Package bootstrap provides dependency initialization for the pipeline service.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/reelforge/reelforge/internal/assembly"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/content"
	"github.com/reelforge/reelforge/internal/media"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/platform"
	"github.com/reelforge/reelforge/internal/playlist"
	"github.com/reelforge/reelforge/internal/storage"
	"github.com/reelforge/reelforge/internal/store"
)

// Dependencies holds all initialized dependencies for the application.
type Dependencies struct {
	Store        *store.Store
	Orchestrator *pipeline.Orchestrator
}

// Close releases held resources.
func (d *Dependencies) Close() error {
	return d.Store.Close()
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	jobStore, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	objects, err := initStorage(cfg, logger)
	if err != nil {
		_ = jobStore.Close()
		return nil, err
	}

	platformClient, err := platform.NewClient(cfg.PlatformBaseURL, platform.WithAPIKey(cfg.PlatformAPIKey))
	if err != nil {
		_ = jobStore.Close()
		return nil, fmt.Errorf("create platform client: %w", err)
	}

	source, err := content.NewSourceClient(cfg.ContentBaseURL)
	if err != nil {
		_ = jobStore.Close()
		return nil, fmt.Errorf("create content source client: %w", err)
	}

	renderer, err := content.NewRendererClient(cfg.RendererBaseURL)
	if err != nil {
		_ = jobStore.Close()
		return nil, fmt.Errorf("create frame renderer client: %w", err)
	}

	engine := assembly.NewEngine(
		media.NewFFmpeg(cfg.FFmpegPath),
		objects,
		assembly.Config{
			TempRoot:      cfg.TempDir,
			AudioDir:      cfg.AudioDir,
			AudioTracks:   cfg.AudioTracks,
			SaveDebugCopy: cfg.SaveDebugCopy,
			DebugCopyDir:  cfg.DebugCopyDir,
		},
		logger,
	)

	resolver := playlist.NewResolver(platformClient, logger)

	orchestrator := pipeline.New(
		jobStore,
		source,
		renderer,
		engine,
		platformClient,
		resolver,
		objects,
		cfg.AccountFilter,
		logger,
	)

	return &Dependencies{
		Store:        jobStore,
		Orchestrator: orchestrator,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.ObjectStore, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Store(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStore(cfg.LocalStorageDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("dir", cfg.LocalStorageDir),
	)
	return localStore, nil
}
