package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/reelforge/reelforge/internal/job"
	"github.com/reelforge/reelforge/internal/job/id"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/store"
)

// JobStore is the persistence surface the handlers need.
type JobStore interface {
	Insert(ctx context.Context, j *job.Job) error
	Get(ctx context.Context, id string) (*job.Job, error)
}

// Runner triggers one pipeline invocation.
type Runner interface {
	RunOnce(ctx context.Context) (pipeline.Outcome, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	store     JobStore
	runner    Runner
	validator *validator.Validate
	logger    *slog.Logger

	// runMu serializes manual run triggers. The pipeline claim is atomic,
	// so this only prevents pointless overlapping invocations.
	runMu sync.Mutex
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(jobStore JobStore, runner Runner, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:     jobStore,
		runner:    runner,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateJob handles POST /jobs requests. The job is enqueued at the first
// stage; a later pipeline run picks it up.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	newJob := &job.Job{
		ID:      id.Generate(),
		Account: req.Account,
		Persona: req.Persona,
		Topic:   req.Topic,
		Format:  req.Format,
	}
	if err := h.store.Insert(r.Context(), newJob); err != nil {
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	h.logger.Info("job created",
		slog.String("job_id", newJob.ID),
		slog.String("account", newJob.Account),
		slog.String("topic", newJob.Topic),
	)

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     newJob.ID,
		Status: string(newJob.Status),
	})
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	foundJob, err := h.store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, JobResponse{
		ID:         foundJob.ID,
		Stage:      int(foundJob.Stage),
		Status:     string(foundJob.Status),
		Error:      foundJob.ErrorMessage,
		VideoURL:   foundJob.Data.VideoURL,
		VideoID:    foundJob.Data.VideoID,
		PlaylistID: foundJob.Data.PlaylistID,
	})
}

// Run handles POST /run requests: one synchronous pipeline invocation,
// processing at most one job.
func (h *Handlers) Run(w http.ResponseWriter, r *http.Request) {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	outcome, err := h.runner.RunOnce(r.Context())
	if err != nil {
		h.logger.Error("pipeline run failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "pipeline run failed", "RUN_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, RunResponse{
		Processed: outcome.Processed,
		JobID:     outcome.JobID,
		Stage:     int(outcome.Stage),
		Failed:    outcome.Failed,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
