package assembly

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/job"
	"github.com/reelforge/reelforge/internal/media"
	"github.com/reelforge/reelforge/internal/storage"
)

// fakeTranscoder writes marker files instead of invoking ffmpeg, and can be
// told to fail a specific render or the concat step.
type fakeTranscoder struct {
	mu        sync.Mutex
	rendered  []float64
	failAt    int // 0-based render index to fail at, -1 for never
	failErr   error
	concatErr error
	lastAudio string
}

func newFakeTranscoder() *fakeTranscoder {
	return &fakeTranscoder{failAt: -1}
}

func (f *fakeTranscoder) RenderStillClip(_ context.Context, _, outPath string, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt >= 0 && len(f.rendered) == f.failAt {
		return f.failErr
	}
	f.rendered = append(f.rendered, seconds)
	return os.WriteFile(outPath, []byte("clip"), 0o600)
}

func (f *fakeTranscoder) ConcatClips(_ context.Context, clipPaths []string, audioPath, outPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.concatErr != nil {
		return f.concatErr
	}
	f.lastAudio = audioPath
	return os.WriteFile(outPath, []byte(fmt.Sprintf("video(%d)", len(clipPaths))), 0o600)
}

// fakeObjectStore serves canned frame bytes and records the upload.
type fakeObjectStore struct {
	mu          sync.Mutex
	downloadErr error
	uploadErr   error
	uploadedKey string
	uploaded    []byte
}

func (f *fakeObjectStore) Download(_ context.Context, url string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return []byte("png:" + url), nil
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, data []byte, _ string) (storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return storage.UploadResult{}, f.uploadErr
	}
	f.uploadedKey = key
	f.uploaded = data
	return storage.UploadResult{
		URL:  "https://cdn.example.com/" + key,
		Size: int64(len(data)),
	}, nil
}

func testJob() *job.Job {
	return &job.Job{
		ID:      "job-123-abc",
		Account: "Main Channel",
		Persona: "Historian",
		Topic:   "Roman Empire",
		Data: job.Data{
			Content: &job.Content{
				Layout: job.LayoutStandard,
				Frames: []job.ContentFrame{{Text: "a"}, {Text: "b"}, {Text: "c"}},
			},
			FrameURLs: []string{"https://cdn/f0.png", "https://cdn/f1.png", "https://cdn/f2.png"},
		},
	}
}

// requireScratchGone asserts no scratch directory survived under root.
func requireScratchGone(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "assembly-", "scratch directory left behind")
	}
}

func TestAssemble_HappyPath(t *testing.T) {
	root := t.TempDir()
	tc := newFakeTranscoder()
	store := &fakeObjectStore{}
	e := NewEngine(tc, store, Config{TempRoot: root}, nil)

	res, err := e.Assemble(context.Background(), testJob())
	require.NoError(t, err)

	assert.Equal(t, []float64{1.5, 3, 2}, tc.rendered)
	assert.Equal(t, "videos/main-channel-historian-roman-empire/job-123-abc.mp4", store.uploadedKey)
	assert.Equal(t, "https://cdn.example.com/"+store.uploadedKey, res.VideoURL)
	assert.Equal(t, int64(len(store.uploaded)), res.VideoSize)
	assert.Empty(t, res.AudioFile, "no audio pool configured")
	requireScratchGone(t, root)
}

func TestAssemble_ValidatesInput(t *testing.T) {
	e := NewEngine(newFakeTranscoder(), &fakeObjectStore{}, Config{TempRoot: t.TempDir()}, nil)

	j := testJob()
	j.Data.FrameURLs = nil
	_, err := e.Assemble(context.Background(), j)
	assert.ErrorIs(t, err, ErrNoFrameURLs)

	j = testJob()
	j.Data.Content = nil
	_, err = e.Assemble(context.Background(), j)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestAssemble_TimeoutErrorNamesFrame(t *testing.T) {
	root := t.TempDir()
	tc := newFakeTranscoder()
	tc.failAt = 1
	tc.failErr = fmt.Errorf("%w after 40s: last stderr line", media.ErrTimeout)
	store := &fakeObjectStore{}
	e := NewEngine(tc, store, Config{TempRoot: root}, nil)

	_, err := e.Assemble(context.Background(), testJob())
	require.Error(t, err)
	assert.ErrorIs(t, err, media.ErrTimeout)
	assert.Contains(t, err.Error(), "Frame 1 processing timed out")
	assert.Empty(t, store.uploadedKey, "failed assembly must not upload")
	requireScratchGone(t, root)
}

func TestAssemble_CleanupOnEveryFailure(t *testing.T) {
	tests := []struct {
		name  string
		build func(tc *fakeTranscoder, store *fakeObjectStore)
	}{
		{"download fails", func(_ *fakeTranscoder, s *fakeObjectStore) {
			s.downloadErr = errors.New("cdn unreachable")
		}},
		{"render fails", func(tc *fakeTranscoder, _ *fakeObjectStore) {
			tc.failAt = 0
			tc.failErr = errors.New("encoder exploded")
		}},
		{"concat fails", func(tc *fakeTranscoder, _ *fakeObjectStore) {
			tc.concatErr = errors.New("demuxer error")
		}},
		{"upload fails", func(_ *fakeTranscoder, s *fakeObjectStore) {
			s.uploadErr = errors.New("bucket gone")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			tc := newFakeTranscoder()
			store := &fakeObjectStore{}
			tt.build(tc, store)

			e := NewEngine(tc, store, Config{TempRoot: root}, nil)
			_, err := e.Assemble(context.Background(), testJob())
			require.Error(t, err)
			requireScratchGone(t, root)
		})
	}
}

func TestAssemble_MissingAudioDowngradesToSilent(t *testing.T) {
	root := t.TempDir()
	tc := newFakeTranscoder()
	e := NewEngine(tc, &fakeObjectStore{}, Config{
		TempRoot:    root,
		AudioDir:    filepath.Join(root, "no-such-dir"),
		AudioTracks: []string{"upbeat.mp3"},
	}, nil)

	res, err := e.Assemble(context.Background(), testJob())
	require.NoError(t, err)
	assert.Empty(t, res.AudioFile)
	assert.Empty(t, tc.lastAudio)
}

func TestAssemble_AudioTrackMixedIn(t *testing.T) {
	root := t.TempDir()
	audioDir := filepath.Join(root, "audio")
	require.NoError(t, os.MkdirAll(audioDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(audioDir, "upbeat.mp3"), []byte("mp3"), 0o600))

	tc := newFakeTranscoder()
	e := NewEngine(tc, &fakeObjectStore{}, Config{
		TempRoot:    root,
		AudioDir:    audioDir,
		AudioTracks: []string{"upbeat.mp3"},
	}, nil)

	res, err := e.Assemble(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, "upbeat.mp3", res.AudioFile)
	assert.Equal(t, filepath.Join(audioDir, "upbeat.mp3"), tc.lastAudio)
}

func TestAssemble_DebugCopySaved(t *testing.T) {
	root := t.TempDir()
	debugDir := filepath.Join(root, "debug")
	e := NewEngine(newFakeTranscoder(), &fakeObjectStore{}, Config{
		TempRoot:      root,
		SaveDebugCopy: true,
		DebugCopyDir:  debugDir,
	}, nil)

	_, err := e.Assemble(context.Background(), testJob())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(debugDir, "job-123-abc.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video(3)", string(data))
}

func TestAssemble_SimplifiedLayoutSingleFrame(t *testing.T) {
	root := t.TempDir()
	tc := newFakeTranscoder()
	e := NewEngine(tc, &fakeObjectStore{}, Config{TempRoot: root}, nil)

	j := testJob()
	j.Data.Content.Layout = job.LayoutSimplified
	j.Data.Content.Frames = j.Data.Content.Frames[:1]
	j.Data.FrameURLs = j.Data.FrameURLs[:1]

	_, err := e.Assemble(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, []float64{15}, tc.rendered)
}
