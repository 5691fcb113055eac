package queue

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/provider"
)

const (
	defaultPollInterval = 5 * time.Second
	progressStep        = 5
	progressCeiling     = 90

	fallbackFailureMessage = "video generation failed"
)

// ResultSink receives finished media. The gallery implements this.
type ResultSink interface {
	Publish(ctx context.Context, media domain.GeneratedMedia) error
}

// SubmitRequest describes a video generation to run through the queue.
type SubmitRequest struct {
	Prompt      string
	Model       string
	AspectRatio string
	Duration    int
	Resolution  string
	SourceImage string
}

// CoordinatorOptions configures the polling coordinator.
type CoordinatorOptions struct {
	Queue    *Queue
	Registry *provider.Registry
	Sink     ResultSink
	Logger   *infra.Logger
	Interval time.Duration
}

// Coordinator drives asynchronous video jobs: it submits them to the
// provider, polls their status on a fixed interval, nudges advisory progress
// while they run, and hands finished media to the result sink before marking
// the job completed. Each job gets its own poll loop and cancel handle.
type Coordinator struct {
	queue    *Queue
	registry *provider.Registry
	sink     ResultSink
	logger   *infra.Logger
	interval time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Coordinator{
		queue:    opts.Queue,
		registry: opts.Registry,
		sink:     opts.Sink,
		logger:   logger,
		interval: interval,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Submit enqueues a video job and hands it to the provider. The job is
// recorded before the provider is contacted, so a rejected submission still
// shows up in the queue as failed.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (domain.Job, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return domain.Job{}, domain.ErrMissingPrompt
	}
	gw, err := c.registry.For(req.Model)
	if err != nil {
		return domain.Job{}, err
	}

	job := c.queue.Add(ctx, domain.Job{
		Kind:        domain.JobKindVideo,
		Prompt:      req.Prompt,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		Duration:    req.Duration,
		Resolution:  req.Resolution,
		SourceImage: req.SourceImage,
	})

	return c.dispatch(ctx, gw, job, req)
}

// Retry re-runs a failed job with its original parameters. Anything not in
// the failed state is rejected.
func (c *Coordinator) Retry(ctx context.Context, id string) (domain.Job, error) {
	job, ok := c.queue.Get(id)
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	if job.Status != domain.JobStatusFailed {
		return domain.Job{}, domain.ErrIllegalTransition
	}
	gw, err := c.registry.For(job.Model)
	if err != nil {
		return domain.Job{}, err
	}

	pending := domain.JobStatusPending
	job, _, err = c.queue.Apply(ctx, id, Update{Status: &pending})
	if err != nil {
		return domain.Job{}, err
	}

	return c.dispatch(ctx, gw, job, SubmitRequest{
		Prompt:      job.Prompt,
		Model:       job.Model,
		AspectRatio: job.AspectRatio,
		Duration:    job.Duration,
		Resolution:  job.Resolution,
		SourceImage: job.SourceImage,
	})
}

// dispatch submits to the provider and starts the poll loop on success.
func (c *Coordinator) dispatch(ctx context.Context, gw provider.Gateway, job domain.Job, req SubmitRequest) (domain.Job, error) {
	providerID, err := gw.SubmitVideo(ctx, provider.VideoRequest{
		Prompt:      req.Prompt,
		Model:       req.Model,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
		ImageURL:    req.SourceImage,
	})
	if err != nil {
		failed := c.markFailed(ctx, job.ID, err.Error())
		return failed, err
	}

	processing := domain.JobStatusProcessing
	job, _, applyErr := c.queue.Apply(ctx, job.ID, Update{
		Status:        &processing,
		ProviderJobID: &providerID,
	})
	if applyErr != nil {
		return domain.Job{}, applyErr
	}

	c.startPolling(job.ID)
	c.logger.Info().Str("job_id", job.ID).Str("provider_job_id", providerID).Str("model", job.Model).Msg("coordinator: video job submitted")
	return job, nil
}

// Resume restarts poll loops for processing jobs restored from a snapshot
// and re-dispatches restored pending jobs.
func (c *Coordinator) Resume(ctx context.Context) {
	for _, job := range c.queue.ByStatus(domain.JobStatusProcessing) {
		if job.ProviderJobID == "" {
			c.markFailed(ctx, job.ID, fallbackFailureMessage)
			continue
		}
		c.startPolling(job.ID)
	}
	for _, job := range c.queue.ByStatus(domain.JobStatusPending) {
		gw, err := c.registry.For(job.Model)
		if err != nil {
			c.markFailed(ctx, job.ID, err.Error())
			continue
		}
		_, _ = c.dispatch(ctx, gw, job, SubmitRequest{
			Prompt:      job.Prompt,
			Model:       job.Model,
			AspectRatio: job.AspectRatio,
			Duration:    job.Duration,
			Resolution:  job.Resolution,
			SourceImage: job.SourceImage,
		})
	}
}

// Cancel stops polling and removes the job from the queue.
func (c *Coordinator) Cancel(ctx context.Context, id string) bool {
	c.stopPolling(id)
	return c.queue.Remove(ctx, id)
}

// Close stops every poll loop and waits for them to drain.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	for id, cancel := range c.cancels {
		cancel()
		delete(c.cancels, id)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Coordinator) startPolling(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, running := c.cancels[id]; running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancels[id] = cancel
	c.wg.Add(1)
	go c.pollLoop(ctx, id)
}

func (c *Coordinator) stopPolling(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.cancels[id]; ok {
		cancel()
		delete(c.cancels, id)
	}
}

func (c *Coordinator) pollLoop(ctx context.Context, id string) {
	defer c.wg.Done()
	defer c.stopPolling(id)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := c.pollOnce(ctx, id); done {
				return
			}
		}
	}
}

// pollOnce performs one status check. It reports true when the loop should
// stop: the job finished, failed, or was removed from the queue.
func (c *Coordinator) pollOnce(ctx context.Context, id string) bool {
	job, ok := c.queue.Get(id)
	if !ok {
		return true
	}
	if job.Status != domain.JobStatusProcessing {
		return true
	}

	gw, err := c.registry.For(job.Model)
	if err != nil {
		c.markFailed(ctx, id, err.Error())
		return true
	}

	poll, err := gw.VideoStatus(ctx, job.ProviderJobID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		c.logger.Warn().Err(err).Str("job_id", id).Msg("coordinator: status poll failed")
		c.markFailed(ctx, id, err.Error())
		return true
	}

	switch {
	case poll.Status == domain.JobStatusCompleted && poll.Location != "":
		c.complete(ctx, job, poll.Location)
		return true
	case poll.Status == domain.JobStatusFailed:
		message := strings.TrimSpace(poll.Error)
		if message == "" {
			message = fallbackFailureMessage
		}
		c.markFailed(ctx, id, message)
		return true
	default:
		// Still pending or processing upstream. A completed report without
		// a location also lands here: keep polling until the URL shows up.
		c.advanceProgress(ctx, job)
		return false
	}
}

// complete publishes the finished media before flipping the job state, so a
// consumer that sees a completed job can always find its result.
func (c *Coordinator) complete(ctx context.Context, job domain.Job, location string) {
	media := domain.GeneratedMedia{
		ID:          job.ID,
		Kind:        domain.MediaKindVideo,
		Location:    location,
		Prompt:      job.Prompt,
		Model:       job.Model,
		AspectRatio: job.AspectRatio,
		SourceImage: job.SourceImage,
		CreatedAt:   time.Now().UTC(),
	}
	if c.sink != nil {
		if err := c.sink.Publish(ctx, media); err != nil {
			c.logger.Warn().Err(err).Str("job_id", job.ID).Msg("coordinator: result publish failed")
		}
	}

	completed := domain.JobStatusCompleted
	full := 100
	if _, _, err := c.queue.Apply(ctx, job.ID, Update{
		Status:         &completed,
		Progress:       &full,
		ResultLocation: &location,
	}); err != nil {
		c.logger.Error().Err(err).Str("job_id", job.ID).Msg("coordinator: complete transition rejected")
		return
	}
	c.logger.Info().Str("job_id", job.ID).Msg("coordinator: video job completed")
}

func (c *Coordinator) advanceProgress(ctx context.Context, job domain.Job) {
	next := job.Progress + progressStep
	if next > progressCeiling {
		next = progressCeiling
	}
	if next == job.Progress {
		return
	}
	_, _, _ = c.queue.Apply(ctx, job.ID, Update{Progress: &next})
}

func (c *Coordinator) markFailed(ctx context.Context, id, message string) domain.Job {
	failed := domain.JobStatusFailed
	job, _, err := c.queue.Apply(ctx, id, Update{
		Status:       &failed,
		ErrorMessage: &message,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("job_id", id).Msg("coordinator: failed transition rejected")
		return job
	}
	c.logger.Warn().Str("job_id", id).Str("reason", message).Msg("coordinator: video job failed")
	return job
}
