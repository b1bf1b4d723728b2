// Package playlist maps deterministic content keys to remote playlist IDs,
// creating each playlist at most once per process even under concurrent
// resolution. The mapping survives restarts through manager tags embedded
// in playlist descriptions rather than a local table.
package playlist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/reelforge/reelforge/internal/platform"
)

// Resolver resolves canonical keys to remote playlist IDs. It is owned by
// the orchestrator's run scope, not a package-level singleton, so tests
// inject a fresh instance per run.
type Resolver struct {
	client platform.Client
	logger *slog.Logger

	mu       sync.Mutex
	snapshot map[string]string
	loaded   bool

	group singleflight.Group
}

// NewResolver creates a Resolver backed by the given platform client.
func NewResolver(client platform.Client, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:   client,
		logger:   logger,
		snapshot: make(map[string]string),
	}
}

// LoadSnapshot populates the key -> playlist ID map by listing the
// account's playlists and parsing manager tags from their descriptions.
// Called once per batch run; Resolve loads it lazily when needed.
func (r *Resolver) LoadSnapshot(ctx context.Context) error {
	playlists, err := r.client.ListPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("list playlists: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range playlists {
		key, ok := ParseTag(p.Description)
		if !ok {
			continue
		}
		r.snapshot[key] = p.ID
	}
	r.loaded = true

	r.logger.Debug("playlist snapshot loaded",
		slog.Int("playlists", len(playlists)),
		slog.Int("managed", len(r.snapshot)),
	)
	return nil
}

// Resolve returns the remote playlist ID for key, creating the playlist if
// no managed playlist carries the key. Concurrent calls for the same
// missing key are coalesced into a single create; all callers receive the
// same ID. The description is tagged with the key so future snapshot scans
// recover the mapping.
func (r *Resolver) Resolve(ctx context.Context, key, title, description string) (string, error) {
	r.mu.Lock()
	if id, ok := r.snapshot[key]; ok {
		r.mu.Unlock()
		return id, nil
	}
	loaded := r.loaded
	r.mu.Unlock()

	if !loaded {
		if err := r.LoadSnapshot(ctx); err != nil {
			return "", err
		}
		r.mu.Lock()
		if id, ok := r.snapshot[key]; ok {
			r.mu.Unlock()
			return id, nil
		}
		r.mu.Unlock()
	}

	// singleflight removes the in-flight entry when the call completes,
	// so a failed creation is retried by the next caller against the
	// authoritative snapshot rather than a stale result.
	id, err, _ := r.group.Do(key, func() (any, error) {
		// Re-check under the lock: a concurrent Do for this key may have
		// finished between the fast path and here.
		r.mu.Lock()
		if id, ok := r.snapshot[key]; ok {
			r.mu.Unlock()
			return id, nil
		}
		r.mu.Unlock()

		created, err := r.client.CreatePlaylist(ctx, title, TagDescription(description, key))
		if err != nil {
			return "", fmt.Errorf("create playlist for key %s: %w", key, err)
		}

		r.mu.Lock()
		r.snapshot[key] = created
		r.mu.Unlock()

		r.logger.Info("playlist created",
			slog.String("key", key),
			slog.String("playlist_id", created),
		)
		return created, nil
	})
	if err != nil {
		return "", err
	}
	return id.(string), nil
}
