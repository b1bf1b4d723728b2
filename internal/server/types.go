// Package server provides the HTTP surface for triggering and inspecting
// pipeline work. It includes handlers, middleware, routes, and DTOs
// separated from domain types.
package server

// CreateJobRequest is the HTTP request body for enqueueing a new job.
type CreateJobRequest struct {
	// Account is the publishing account the job belongs to.
	Account string `json:"account" validate:"required,max=128"`
	// Persona is the content persona used for generation.
	Persona string `json:"persona" validate:"required,max=128"`
	// Topic is the subject of the content.
	Topic string `json:"topic" validate:"required,max=256"`
	// Format is the content format (e.g. "shorts").
	Format string `json:"format" validate:"required,max=64"`
}

// CreateJobResponse is the HTTP response after enqueueing a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Stage is the current pipeline checkpoint (1-5).
	Stage int `json:"stage"`
	// Status is the current job status.
	Status string `json:"status"`
	// Error contains the failure message if the job failed.
	Error string `json:"error,omitempty"`
	// VideoURL is the assembled video's storage URL, once assembly finished.
	VideoURL string `json:"video_url,omitempty"`
	// VideoID is the remote platform video ID, once published.
	VideoID string `json:"video_id,omitempty"`
	// PlaylistID is the remote playlist the video was added to, if any.
	PlaylistID string `json:"playlist_id,omitempty"`
}

// RunResponse is the HTTP response of a pipeline invocation.
type RunResponse struct {
	// Processed reports whether a job was claimed this run.
	Processed bool `json:"processed"`
	// JobID identifies the processed job, empty on a no-op run.
	JobID string `json:"job_id,omitempty"`
	// Stage is the stage the job was processed at.
	Stage int `json:"stage,omitempty"`
	// Failed reports that the job was marked failed this run.
	Failed bool `json:"failed,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
