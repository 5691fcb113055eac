package domain

import "time"

// JobKind enumerates the media categories a job can produce.
type JobKind string

const (
	JobKindImage JobKind = "image"
	JobKindVideo JobKind = "video"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status ends a job's lifecycle. A failed job
// can still be revived through an explicit retry.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal step of
// the job state machine. failed -> pending is the retry path.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusFailed
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	case JobStatusFailed:
		return next == JobStatusPending
	default:
		return false
	}
}

// Job encapsulates one unit of generation work tracked by the queue.
// Image jobs are resolved synchronously and normally bypass the queue;
// video jobs always enter it and are driven by the polling coordinator.
type Job struct {
	ID     string    `json:"id"`
	Kind   JobKind   `json:"kind"`
	Status JobStatus `json:"status"`

	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	AspectRatio string `json:"aspect_ratio"`

	// Video-specific parameters, carried for display and retry.
	Duration   int    `json:"duration,omitempty"`
	Resolution string `json:"resolution,omitempty"`

	// SourceImage holds edit/animate provenance (URL or data URL).
	SourceImage string `json:"source_image,omitempty"`

	// Progress is advisory only: the providers report no fractional
	// progress, so the coordinator approximates while processing.
	Progress int `json:"progress"`

	// ProviderJobID is the opaque handle returned by the provider at
	// submission; present only once submission succeeds.
	ProviderJobID string `json:"provider_job_id,omitempty"`

	// ResultLocation is set only on transition to completed.
	ResultLocation string `json:"result_location,omitempty"`
	// ErrorMessage is set only on transition to failed.
	ErrorMessage string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
