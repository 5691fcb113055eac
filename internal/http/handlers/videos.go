package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"genstudio/internal/domain"
	"genstudio/internal/queue"
)

type submitVideoRequest struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	AspectRatio string `json:"aspect_ratio"`
	Duration    int    `json:"duration"`
	Resolution  string `json:"resolution"`
	SourceImage string `json:"source_image"`
	StylePreset string `json:"style_preset"`
}

type jobResponse struct {
	Job domain.Job `json:"job"`
}

// SubmitVideo enqueues an asynchronous video generation and returns the
// accepted job. Completion is observed by polling the job status endpoint.
func (a *App) SubmitVideo(w http.ResponseWriter, r *http.Request) {
	var req submitVideoRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Model == "" {
		req.Model = a.Settings.Current().DefaultModel
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "16:9"
	}
	if req.Duration <= 0 {
		req.Duration = 5
	}
	if req.Resolution == "" {
		req.Resolution = "720p"
	}

	ctx := r.Context()
	job, err := a.Coordinator.Submit(ctx, queue.SubmitRequest{
		Prompt:      req.Prompt,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		Duration:    req.Duration,
		Resolution:  req.Resolution,
		SourceImage: req.SourceImage,
	})
	if err != nil {
		// A provider rejection still produced a failed queue entry; only
		// pre-flight validation failures return without a job.
		if job.ID != "" {
			a.json(w, http.StatusBadGateway, jobResponse{Job: job})
			return
		}
		a.fail(w, err)
		return
	}

	mode := domain.ModeTextToVideo
	if req.SourceImage != "" {
		mode = domain.ModeImageToVideo
	}
	if _, err := a.History.Record(ctx, req.Prompt, mode, req.Model, req.StylePreset); err != nil {
		a.Logger.Warn().Err(err).Msg("handlers: record prompt history")
	}

	a.json(w, http.StatusAccepted, jobResponse{Job: job})
}

// VideoStatus reports the current state of one job, progress included.
func (a *App) VideoStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := a.Queue.Get(chi.URLParam(r, "jobID"))
	if !ok {
		a.fail(w, domain.ErrNotFound)
		return
	}
	a.json(w, http.StatusOK, jobResponse{Job: job})
}

// RetryVideo re-submits a failed job with its original parameters.
func (a *App) RetryVideo(w http.ResponseWriter, r *http.Request) {
	job, err := a.Coordinator.Retry(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if job.ID != "" {
			a.json(w, http.StatusBadGateway, jobResponse{Job: job})
			return
		}
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusAccepted, jobResponse{Job: job})
}

// CancelVideo stops polling for a job and drops it from the queue.
func (a *App) CancelVideo(w http.ResponseWriter, r *http.Request) {
	if !a.Coordinator.Cancel(r.Context(), chi.URLParam(r, "jobID")) {
		a.fail(w, domain.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
