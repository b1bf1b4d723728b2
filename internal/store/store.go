// Package store provides the sqlite-backed job store. It owns the job
// lifecycle queries: atomic claim of the oldest pending job per stage,
// partial updates with additive data merges, transactional completion, and
// checkpoint-based auto retry of failed jobs.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/reelforge/reelforge/internal/job"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("store: job not found")

// Store wraps the sqlite database holding jobs and uploaded videos.
type Store struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA foreign_keys = ON",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

// Open opens (creating if necessary) the job database at path and runs
// pending migrations.
func Open(path string) (*Store, error) {
	registerHook()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for SQLite (WAL allows concurrent reads but only one writer)
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const jobColumns = "id, account, persona, topic, format, stage, status, error_message, data, created_at, updated_at"

// Insert persists a new job. CreatedAt/UpdatedAt are stamped if unset.
func (s *Store) Insert(ctx context.Context, j *job.Job) error {
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = now
	}
	if j.Stage == 0 {
		j.Stage = job.StageContent
	}
	if j.Status == "" {
		j.Status = job.PendingStatus(j.Stage)
	}

	data, err := json.Marshal(j.Data)
	if err != nil {
		return fmt.Errorf("marshal job data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Account, j.Persona, j.Topic, j.Format, int(j.Stage), string(j.Status),
		j.ErrorMessage, string(data), j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID. Returns ErrJobNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*job.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return j, nil
}

// ClaimOldestPending atomically selects the oldest job eligible at the given
// stage and flips its status to the stage's processing marker, so concurrent
// pipeline invocations cannot pick the same row. Eligible means the stage's
// pending status, or failed with stage > 1 (a failed job is reprocessed at
// its recorded stage). accountFilter narrows the selection when non-empty.
// Returns (nil, nil) when no job is eligible.
func (s *Store) ClaimOldestPending(ctx context.Context, stage job.Stage, accountFilter string) (*job.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE stage = ?
			  AND (status = ? OR (status = ? AND stage > 1))
			  AND (? = '' OR account = ?)
			ORDER BY created_at ASC
			LIMIT 1
		)
		RETURNING `+jobColumns,
		string(job.ProcessingStatus(stage)), time.Now().UTC(),
		int(stage), string(job.PendingStatus(stage)), string(job.StatusFailed),
		accountFilter, accountFilter,
	)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return j, nil
}

// Partial is a partial field update applied by Update. Nil fields are left
// untouched; Data is merged into the stored payload, never replacing it.
type Partial struct {
	Status       *job.Status
	Stage        *job.Stage
	Data         *job.Data
	ErrorMessage *string
}

// Update applies a partial update to a job and stamps updated_at. The data
// payload is merged additively so a mid-pipeline update cannot erase an
// earlier stage's artifacts.
func (s *Store) Update(ctx context.Context, id string, p Partial) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getJobTx(ctx, tx, id)
	if err != nil {
		return err
	}

	if p.Status != nil {
		cur.Status = *p.Status
	}
	if p.Stage != nil {
		cur.Stage = *p.Stage
	}
	if p.Data != nil {
		cur.Data = cur.Data.Merge(*p.Data)
	}
	if p.ErrorMessage != nil {
		cur.ErrorMessage = job.TruncateError(*p.ErrorMessage)
	}

	data, err := json.Marshal(cur.Data)
	if err != nil {
		return fmt.Errorf("marshal job data: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE jobs SET stage = ?, status = ?, error_message = ?, data = ?, updated_at = ?
		WHERE id = ?`,
		int(cur.Stage), string(cur.Status), cur.ErrorMessage, string(data), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	return tx.Commit()
}

// UploadMetadata describes the published video recorded alongside job
// completion.
type UploadMetadata struct {
	Title       string
	Description string
	Tags        []string
	PlaylistID  string
}

// MarkCompleted finishes a job in a single transaction: the job row moves to
// completed/stage 5 with the remote video ID merged into its data, and an
// uploaded_videos record is inserted. Both writes commit together or not at
// all, so a completed job without its artifact record is never observable.
func (s *Store) MarkCompleted(ctx context.Context, id, remoteID string, meta UploadMetadata) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin completion: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getJobTx(ctx, tx, id)
	if err != nil {
		return err
	}

	cur.Data = cur.Data.Merge(job.Data{VideoID: remoteID, PlaylistID: meta.PlaylistID})
	data, err := json.Marshal(cur.Data)
	if err != nil {
		return fmt.Errorf("marshal job data: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE jobs SET stage = ?, status = ?, error_message = '', data = ?, updated_at = ?
		WHERE id = ?`,
		int(job.StageDone), string(job.StatusCompleted), string(data), now, id,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	tags, err := json.Marshal(meta.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO uploaded_videos (job_id, remote_id, title, description, tags, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, remoteID, meta.Title, meta.Description, string(tags), now,
	)
	if err != nil {
		return fmt.Errorf("insert uploaded video: %w", err)
	}

	return tx.Commit()
}

// UploadedVideo is the immutable record of a published video.
type UploadedVideo struct {
	ID          int64
	JobID       string
	RemoteID    string
	Title       string
	Description string
	Tags        []string
	UploadedAt  time.Time
}

// UploadedVideoForJob returns the artifact record written at completion.
// Returns ErrJobNotFound when no record exists for the job.
func (s *Store) UploadedVideoForJob(ctx context.Context, jobID string) (*UploadedVideo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, job_id, remote_id, title, description, tags, uploaded_at
		FROM uploaded_videos WHERE job_id = ?`, jobID)

	var v UploadedVideo
	var tags string
	if err := row.Scan(&v.ID, &v.JobID, &v.RemoteID, &v.Title, &v.Description, &tags, &v.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("scan uploaded video: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &v.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &v, nil
}

// AutoRetryFailed requeues failed jobs whose data holds enough artifacts to
// resume. The checkpoint is recomputed purely from data contents via
// Data.Checkpoint, so a job that failed deep in a later stage without
// persisting that stage's output falls back to the earlier checkpoint.
// Jobs with no recoverable artifact stay failed. Returns the number of jobs
// requeued.
func (s *Store) AutoRetryFailed(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data FROM jobs WHERE status = ? AND stage > 1`,
		string(job.StatusFailed),
	)
	if err != nil {
		return 0, fmt.Errorf("list failed jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type retry struct {
		id     string
		stage  job.Stage
		status job.Status
	}
	var retries []retry

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return 0, fmt.Errorf("scan failed job: %w", err)
		}
		var data job.Data
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return 0, fmt.Errorf("unmarshal data for job %s: %w", id, err)
		}
		if stage, status, ok := data.Checkpoint(); ok {
			retries = append(retries, retry{id: id, stage: stage, status: status})
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate failed jobs: %w", err)
	}

	for _, r := range retries {
		_, err := s.db.ExecContext(ctx, `
			UPDATE jobs SET stage = ?, status = ?, error_message = '', updated_at = ?
			WHERE id = ?`,
			int(r.stage), string(r.status), time.Now().UTC(), r.id,
		)
		if err != nil {
			return 0, fmt.Errorf("requeue job %s: %w", r.id, err)
		}
	}

	return len(retries), nil
}

// ResetStalled reverts jobs stranded in a processing status back to the
// stage's pending status. Run at startup so a crash mid-stage cannot leave a
// job stuck with no forward progress possible.
func (s *Store) ResetStalled(ctx context.Context) (int, error) {
	total := 0
	for _, processing := range []job.Status{
		job.StatusContentProcessing,
		job.StatusFramesProcessing,
		job.StatusAssemblyProcessing,
		job.StatusUploadProcessing,
	} {
		pending, _ := job.PendingFor(processing)
		res, err := s.db.ExecContext(ctx, `
			UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?`,
			string(pending), time.Now().UTC(), string(processing),
		)
		if err != nil {
			return total, fmt.Errorf("reset stalled jobs: %w", err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*job.Job, error) {
	var j job.Job
	var stage int
	var status, raw string
	err := row.Scan(&j.ID, &j.Account, &j.Persona, &j.Topic, &j.Format,
		&stage, &status, &j.ErrorMessage, &raw, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Stage = job.Stage(stage)
	j.Status = job.Status(status)
	if err := json.Unmarshal([]byte(raw), &j.Data); err != nil {
		return nil, fmt.Errorf("unmarshal job data: %w", err)
	}
	return &j, nil
}

func getJobTx(ctx context.Context, tx *sql.Tx, id string) (*job.Job, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}
