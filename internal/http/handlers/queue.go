package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"genstudio/internal/domain"
	"genstudio/internal/queue"
)

type queueResponse struct {
	Jobs     []domain.Job `json:"jobs"`
	ActiveID string       `json:"active_id,omitempty"`
}

// ListQueue returns the queue newest-first, optionally filtered by status.
func (a *App) ListQueue(w http.ResponseWriter, r *http.Request) {
	var jobs []domain.Job
	if status := r.URL.Query().Get("status"); status != "" {
		jobs = a.Queue.ByStatus(domain.JobStatus(status))
	} else {
		jobs = a.Queue.Items()
	}

	resp := queueResponse{Jobs: jobs}
	if active, ok := a.Queue.Active(); ok {
		resp.ActiveID = active.ID
	}
	a.json(w, http.StatusOK, resp)
}

type updateJobRequest struct {
	Status         *domain.JobStatus `json:"status"`
	Progress       *int              `json:"progress"`
	ResultLocation *string           `json:"result_location"`
	ErrorMessage   *string           `json:"error"`
}

// UpdateJob applies a partial update to one job. Updates for jobs no longer
// in the queue succeed without effect; a removed job must stay removed.
func (a *App) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var req updateJobRequest
	if !a.decode(w, r, &req) {
		return
	}

	job, found, err := a.Queue.Apply(r.Context(), chi.URLParam(r, "jobID"), queue.Update{
		Status:         req.Status,
		Progress:       req.Progress,
		ResultLocation: req.ResultLocation,
		ErrorMessage:   req.ErrorMessage,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	a.json(w, http.StatusOK, jobResponse{Job: job})
}

// RemoveJob drops one job from the queue, stopping any poll loop first.
func (a *App) RemoveJob(w http.ResponseWriter, r *http.Request) {
	if !a.Coordinator.Cancel(r.Context(), chi.URLParam(r, "jobID")) {
		a.fail(w, domain.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clearQueueRequest struct {
	Scope string `json:"scope"`
}

// ClearQueue removes finished jobs in bulk. Scope selects completed, failed,
// or all entries; clearing everything cancels in-flight polls too.
func (a *App) ClearQueue(w http.ResponseWriter, r *http.Request) {
	var req clearQueueRequest
	if !a.decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	var removed int
	switch req.Scope {
	case "completed":
		removed = a.Queue.ClearCompleted(ctx)
	case "failed":
		removed = a.Queue.ClearFailed(ctx)
	case "all":
		for _, job := range a.Queue.ByStatus(domain.JobStatusProcessing) {
			if a.Coordinator.Cancel(ctx, job.ID) {
				removed++
			}
		}
		removed += a.Queue.ClearAll(ctx)
	default:
		a.error(w, http.StatusBadRequest, "scope must be completed, failed, or all")
		return
	}
	a.json(w, http.StatusOK, map[string]int{"removed": removed})
}

type setActiveRequest struct {
	ID string `json:"id"`
}

// SetActiveJob marks the job the client is currently focused on. An empty id
// clears the marker.
func (a *App) SetActiveJob(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.ID != "" {
		if _, ok := a.Queue.Get(req.ID); !ok {
			a.fail(w, domain.ErrNotFound)
			return
		}
	}
	a.Queue.SetActive(req.ID)
	w.WriteHeader(http.StatusNoContent)
}
